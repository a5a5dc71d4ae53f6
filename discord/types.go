package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/tnicklin/leetcode_tracker/models"
)

// Discord defines the interface for the Discord client.
type Discord interface {
	WriteMessage(channelNameOrID, msg string) error
	Publish(result models.BatchResult) error
	Start(ctx context.Context) error
	Stop() error
}

// sender is the part of *discordgo.Session used to post messages.
type sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}
