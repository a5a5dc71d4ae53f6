package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/leetcode"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/report"
	"github.com/tnicklin/leetcode_tracker/store"
)

var _ Discord = (*DefaultDiscord)(nil)

const (
	commandPrefix = "!"
	// Discord rejects messages longer than this.
	maxMessageLength = 2000
	truncatedSuffix  = "\n..."
)

type DefaultDiscord struct {
	session        *discordgo.Session
	sender         sender
	commandChannel string
	reportChannel  string
	maxNames       int
	commandTimeout time.Duration
	topN           int
	runner         leetcode.Runner
	store          store.Store
	clock          clock.Clock
	logger         logger.Logger
	baseCtx        context.Context
	removeHandler  func()
}

type Params struct {
	Config Config
	Runner leetcode.Runner
	Store  store.Store
	Clock  clock.Clock
	Logger logger.Logger
}

func New(p Params) (*DefaultDiscord, error) {
	cfg := p.Config
	cfg.Defaults()

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	d := newDiscord(p, cfg, session)
	d.session = session
	return d, nil
}

func newDiscord(p Params, cfg Config, s sender) *DefaultDiscord {
	c := p.Clock
	if c == nil {
		c = clock.System()
	}
	return &DefaultDiscord{
		sender:         s,
		commandChannel: cfg.CommandChannel,
		reportChannel:  cfg.ReportChannel,
		maxNames:       cfg.MaxNames,
		commandTimeout: cfg.CommandTimeout,
		topN:           cfg.TopN,
		runner:         p.Runner,
		store:          p.Store,
		clock:          c,
		logger:         logger.OrNop(p.Logger),
		baseCtx:        context.Background(),
	}
}

// Start opens the gateway connection and begins answering commands. Command
// runs are cancelled when ctx is done.
func (c *DefaultDiscord) Start(ctx context.Context) error {
	if c.session == nil {
		return errors.New("discord session is nil")
	}
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}

	c.baseCtx = ctx
	c.removeHandler = c.session.AddHandler(c.handleMessage)
	c.logger.InfoW("discord connected", "command_channel", c.commandChannel)
	return nil
}

func (c *DefaultDiscord) Stop() error {
	if c.removeHandler != nil {
		c.removeHandler()
		c.removeHandler = nil
	}
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

// Publish posts a batch summary to the report channel.
func (c *DefaultDiscord) Publish(result models.BatchResult) error {
	if c.reportChannel == "" {
		return errors.New("report channel not configured")
	}
	return c.WriteMessage(c.reportChannel, report.Summary(result, c.topN))
}

func (c *DefaultDiscord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	response := c.handleCommand(m.ChannelID, m.Content)
	if response == "" {
		return
	}
	if err := c.WriteMessage(m.ChannelID, response); err != nil {
		c.logger.ErrorW("failed to send response", "error", err)
	}
}

// handleCommand returns the reply for a message, or "" when the message is
// not a command for this bot.
func (c *DefaultDiscord) handleCommand(channelID, content string) string {
	// Only respond in the configured command channel
	if c.commandChannel != "" && channelID != c.commandChannel {
		return ""
	}
	if !strings.HasPrefix(content, commandPrefix) {
		return ""
	}

	parts := strings.Fields(strings.TrimPrefix(content, commandPrefix))
	if len(parts) == 0 {
		return ""
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	ctx, cancel := context.WithTimeout(c.baseCtx, c.commandTimeout)
	defer cancel()

	var (
		response string
		err      error
	)
	switch cmd {
	case "stats":
		response, err = c.cmdStats(ctx, args)
	case "history":
		response, err = c.cmdHistory(ctx, args)
	case "help":
		response = c.cmdHelp()
	default:
		return ""
	}

	if err != nil {
		c.logger.ErrorW("command failed", "command", cmd, "error", err)
		response = fmt.Sprintf("Error: %v", err)
	}
	return response
}

// cmdStats handles the !stats command
// Usage: !stats <user> [user...]
func (c *DefaultDiscord) cmdStats(ctx context.Context, args []string) (string, error) {
	if c.runner == nil {
		return "", errors.New("tracker not configured")
	}
	if len(args) == 0 {
		return "Usage: `!stats <username> [username...]`\nExample: `!stats alice bob`", nil
	}

	names := make([]string, 0, len(args))
	for _, arg := range args {
		for _, name := range strings.Split(arg, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) > c.maxNames {
		return fmt.Sprintf("At most %d usernames per request.", c.maxNames), nil
	}

	started := c.clock.Now()
	result := c.runner.RunNames(ctx, names)
	c.saveRun(ctx, started, result)

	return report.Summary(result, c.topN), nil
}

func (c *DefaultDiscord) saveRun(ctx context.Context, started time.Time, result models.BatchResult) {
	if c.store == nil {
		return
	}
	if _, err := c.store.SaveRun(ctx, store.Run{StartedAt: started, CompletedAt: c.clock.Now(), Result: result}); err != nil {
		c.logger.ErrorW("failed to save run", "error", err)
	}
}

// cmdHistory handles the !history command
// Usage: !history [count]
func (c *DefaultDiscord) cmdHistory(ctx context.Context, args []string) (string, error) {
	if c.store == nil {
		return "", errors.New("database not configured")
	}

	limit := 5
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "Usage: `!history [count]`", nil
		}
		limit = n
	}

	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "No runs recorded yet.", nil
	}

	var sb strings.Builder
	sb.WriteString("**Recent runs**\n```\n")
	for _, run := range runs {
		fmt.Fprintf(&sb, "%s  %3d users  %3d ok  %3d failed  %s\n",
			run.CompletedAt.Format("2006-01-02 15:04"),
			run.Identities,
			run.RecordCount,
			run.FailureCount,
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond),
		)
	}
	sb.WriteString("```")
	return sb.String(), nil
}

func (c *DefaultDiscord) cmdHelp() string {
	return `**Available Commands:**
` + "```" + `
!stats <user> [user...]  - Fetch and rank LeetCode profiles
!history [count]         - Show recent runs
!help                    - Show this help message
` + "```" + `
*Usernames may be separated by spaces or commas.*`
}

func (c *DefaultDiscord) WriteMessage(channelID, msg string) error {
	if c.sender == nil {
		return errors.New("discord session is nil")
	}
	_, err := c.sender.ChannelMessageSend(channelID, truncate(msg))
	return err
}

func truncate(msg string) string {
	if len(msg) <= maxMessageLength {
		return msg
	}
	cut := maxMessageLength - len(truncatedSuffix)
	// Back off to a rune boundary.
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + truncatedSuffix
}
