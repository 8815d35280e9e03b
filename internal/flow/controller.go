package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ytget/yt-linkbot/internal/catalog"
	"github.com/ytget/yt-linkbot/internal/download"
	"github.com/ytget/yt-linkbot/internal/i18n"
	"github.com/ytget/yt-linkbot/internal/model"
	"github.com/ytget/yt-linkbot/internal/platform"
	"github.com/ytget/yt-linkbot/internal/selection"
)

// Defaults
const (
	DefaultResolveTimeout    = 60 * time.Second
	DefaultPlaylistLimit     = 20
	DefaultSourceURLTemplate = platform.YouTubeVideoURLTemplate

	// VideoPrefix marks playlist item buttons: "video:{videoId}"
	VideoPrefix = "video:"

	sendTimeout         = 30 * time.Second
	maxButtonLabelRunes = 60
)

// Commands understood by the bot
const (
	CommandStart = "/start"
	CommandHelp  = "/help"
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

// Gateway sends messages to users. Implementations must be safe for
// concurrent use; completion callbacks run on orchestrator goroutines.
type Gateway interface {
	SendText(ctx context.Context, conversationID int64, text string) (int, error)
	SendChoices(ctx context.Context, conversationID int64, text string, choices []model.Choice) (int, error)
	SendLink(ctx context.Context, conversationID int64, text, label, url string) (int, error)
	EditMessage(ctx context.Context, conversationID int64, messageID int, text string, choices []model.Choice) error
	AnswerButton(ctx context.Context, callbackID, notice string) error
}

// Resolver turns a link into a rendition catalog
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*catalog.Result, error)
}

// Submitter starts a background fetch
type Submitter interface {
	Submit(source model.SourceItem, rendition model.Rendition, done download.Completion) *model.FetchJob
}

// PlaylistExpander lists the videos of a playlist link
type PlaylistExpander interface {
	ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error)
}

// TextMessage is an inbound chat message
type TextMessage struct {
	ConversationID int64
	UserID         int64
	UserName       string
	Text           string
}

// ButtonPress is an inbound press of an inline button
type ButtonPress struct {
	ConversationID int64
	MessageID      int
	CallbackID     string
	Data           string
}

// Config holds the controller settings
type Config struct {
	ResolveTimeout    time.Duration
	RetentionWindow   time.Duration
	Container         string
	SourceURLTemplate string // fmt template taking the source item ID
	PlaylistLimit     int
}

// Controller drives sessions from inbound events to delivered links
type Controller struct {
	gateway   Gateway
	resolver  Resolver
	submitter Submitter
	playlists PlaylistExpander
	texts     *i18n.Localization
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

// NewController creates a flow controller
func NewController(gateway Gateway, resolver Resolver, submitter Submitter, texts *i18n.Localization, cfg Config, logger *slog.Logger) *Controller {
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	if cfg.Container == "" {
		cfg.Container = catalog.DefaultContainer
	}
	if cfg.SourceURLTemplate == "" {
		cfg.SourceURLTemplate = DefaultSourceURLTemplate
	}
	if cfg.PlaylistLimit <= 0 {
		cfg.PlaylistLimit = DefaultPlaylistLimit
	}
	if texts == nil {
		texts = i18n.NewLocalization()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		gateway:   gateway,
		resolver:  resolver,
		submitter: submitter,
		texts:     texts,
		cfg:       cfg,
		logger:    logger.With("component", "flow"),
		now:       time.Now,
		sessions:  make(map[sessionKey]*Session),
	}
}

// SetPlaylistExpander enables playlist links
func (c *Controller) SetPlaylistExpander(p PlaylistExpander) {
	c.playlists = p
}

// Session returns a snapshot of the session attached to a message
func (c *Controller) Session(conversationID int64, messageID int) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[sessionKey{conversationID, messageID}]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// SessionCount returns the number of unfinished sessions
func (c *Controller) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// HandleText routes a chat message: commands, links or a usage hint
func (c *Controller) HandleText(ctx context.Context, msg TextMessage) error {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		return c.handleCommand(ctx, msg, text)
	}

	link := linkPattern.FindString(text)
	if link == "" {
		_, err := c.gateway.SendText(ctx, msg.ConversationID, c.texts.GetText(i18n.KeyUsage))
		return err
	}

	if c.playlists != nil && platform.IsPlaylistURL(link) {
		return c.HandlePlaylist(ctx, msg.ConversationID, link)
	}
	return c.HandleLink(ctx, msg.ConversationID, link)
}

func (c *Controller) handleCommand(ctx context.Context, msg TextMessage, text string) error {
	command := strings.Fields(text)[0]
	// "/start@botname" in group chats
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}

	var reply string
	switch command {
	case CommandStart:
		name := msg.UserName
		if name == "" {
			name = "there"
		}
		reply = c.texts.Format(i18n.KeyGreeting, name)
	default:
		reply = c.texts.GetText(i18n.KeyUsage)
	}

	_, err := c.gateway.SendText(ctx, msg.ConversationID, reply)
	return err
}

// HandleLink resolves a link and presents its renditions. The status message
// sent first is edited into either the choice list or an error text.
func (c *Controller) HandleLink(ctx context.Context, conversationID int64, link string) error {
	messageID, err := c.gateway.SendText(ctx, conversationID, c.texts.GetText(i18n.KeyFetchingQualities))
	if err != nil {
		return fmt.Errorf("send status message: %w", err)
	}

	resolveCtx, cancel := context.WithTimeout(ctx, c.cfg.ResolveTimeout)
	result, err := c.resolver.Resolve(resolveCtx, link)
	cancel()

	if err != nil {
		c.logger.Warn("link resolution failed", "conversation_id", conversationID, "url", link, "error", err)
		text := c.texts.GetText(i18n.KeyUpstreamError)
		if errors.Is(err, catalog.ErrNoPlayableFormats) {
			text = c.texts.Format(i18n.KeyNoFormats, c.cfg.Container)
		}
		return c.gateway.EditMessage(ctx, conversationID, messageID, text, nil)
	}

	session := &Session{
		ConversationID: conversationID,
		MessageID:      messageID,
		State:          StateIdle,
		Result:         result,
	}
	if err := session.transition(StateAwaitingChoice, c.now()); err != nil {
		return err
	}

	c.mu.Lock()
	c.sessions[sessionKey{conversationID, messageID}] = session
	c.mu.Unlock()

	c.logger.Info("renditions presented", "conversation_id", conversationID, "message_id", messageID, "source_id", result.Source.ID, "choices", len(result.Choices))

	prompt := c.texts.Format(i18n.KeyChooseQuality, result.Source.Title)
	if err := c.gateway.EditMessage(ctx, conversationID, messageID, prompt, result.Choices); err != nil {
		c.dropSession(sessionKey{conversationID, messageID})
		return fmt.Errorf("present choices: %w", err)
	}
	return nil
}

// HandlePlaylist lists a playlist's first videos as buttons; pressing one
// starts a regular link session for that video
func (c *Controller) HandlePlaylist(ctx context.Context, conversationID int64, link string) error {
	messageID, err := c.gateway.SendText(ctx, conversationID, c.texts.GetText(i18n.KeyFetchingQualities))
	if err != nil {
		return fmt.Errorf("send status message: %w", err)
	}

	playlistCtx, cancel := context.WithTimeout(ctx, c.cfg.ResolveTimeout)
	playlist, err := c.playlists.ParsePlaylist(playlistCtx, link)
	cancel()

	if err == nil && (playlist == nil || len(playlist.Videos) == 0) {
		err = errors.New("playlist has no videos")
	}
	if err != nil {
		c.logger.Warn("playlist expansion failed", "conversation_id", conversationID, "url", link, "error", err)
		return c.gateway.EditMessage(ctx, conversationID, messageID, c.texts.GetText(i18n.KeyPlaylistError), nil)
	}

	var choices []model.Choice
	for _, video := range playlist.Head(c.cfg.PlaylistLimit) {
		data := VideoPrefix + video.ID
		if len(data) > selection.MaxTokenBytes {
			c.logger.Warn("playlist item skipped", "video_id", video.ID, "reason", "button data too long")
			continue
		}
		choices = append(choices, model.Choice{Label: buttonLabel(video.Title), Data: data})
	}

	prompt := c.texts.Format(i18n.KeyPlaylistChoose, playlist.Title, len(choices))
	return c.gateway.EditMessage(ctx, conversationID, messageID, prompt, choices)
}

// HandleButton dispatches a button press by its data prefix
func (c *Controller) HandleButton(ctx context.Context, press ButtonPress) error {
	if videoID, ok := strings.CutPrefix(press.Data, VideoPrefix); ok {
		c.answer(ctx, press.CallbackID, "")
		if videoID == "" {
			return c.gateway.EditMessage(ctx, press.ConversationID, press.MessageID, c.texts.GetText(i18n.KeyMalformedChoice), nil)
		}
		return c.HandleLink(ctx, press.ConversationID, fmt.Sprintf(c.cfg.SourceURLTemplate, videoID))
	}
	return c.HandleChoice(ctx, press)
}

// HandleChoice binds a pressed quality button to its rendition and starts
// the background fetch
func (c *Controller) HandleChoice(ctx context.Context, press ButtonPress) error {
	key := sessionKey{press.ConversationID, press.MessageID}

	formatID, sourceID, err := selection.Decode(model.SelectionToken(press.Data))
	if err != nil {
		c.answer(ctx, press.CallbackID, "")
		c.logger.Warn("malformed selection", "conversation_id", press.ConversationID, "data", press.Data, "error", err)
		c.failSession(key)
		return c.gateway.EditMessage(ctx, press.ConversationID, press.MessageID, c.texts.GetText(i18n.KeyMalformedChoice), nil)
	}

	c.mu.Lock()
	session, exists := c.sessions[key]
	if exists && session.State == StateFetching {
		c.mu.Unlock()
		c.answer(ctx, press.CallbackID, c.texts.GetText(i18n.KeyAlreadyProcessing))
		return nil
	}

	var source model.SourceItem
	var rendition model.Rendition
	if exists {
		var ok bool
		rendition, ok = session.Result.Rendition(formatID)
		if !ok || session.Result.Source.ID != sourceID {
			c.mu.Unlock()
			c.answer(ctx, press.CallbackID, "")
			c.failSession(key)
			return c.gateway.EditMessage(ctx, press.ConversationID, press.MessageID, c.texts.GetText(i18n.KeyExpiredChoice), nil)
		}
		source = session.Result.Source
	} else {
		// No session for this message (e.g. the bot restarted since the
		// choices were shown); the token alone identifies the fetch.
		source = model.SourceItem{ID: sourceID, CanonicalURL: fmt.Sprintf(c.cfg.SourceURLTemplate, sourceID)}
		rendition = model.Rendition{FormatID: formatID, ContainerExt: c.cfg.Container}
		session = &Session{ConversationID: press.ConversationID, MessageID: press.MessageID, State: StateIdle}
		c.sessions[key] = session
	}

	if err := session.transition(StateFetching, c.now()); err != nil {
		c.mu.Unlock()
		c.answer(ctx, press.CallbackID, "")
		return err
	}
	c.mu.Unlock()

	c.answer(ctx, press.CallbackID, "")

	label := rendition.FormatID
	if rendition.Height > 0 {
		label = rendition.Label()
	}
	if err := c.gateway.EditMessage(ctx, press.ConversationID, press.MessageID, c.texts.Format(i18n.KeyProcessing, label), nil); err != nil {
		c.logger.Warn("status edit failed", "conversation_id", press.ConversationID, "error", err)
	}

	job := c.submitter.Submit(source, rendition, c.completion(key))

	c.mu.Lock()
	session.JobID = job.ID
	c.mu.Unlock()

	c.logger.Info("rendition chosen", "conversation_id", press.ConversationID, "source_id", source.ID, "format_id", rendition.FormatID, "job_id", job.ID)
	return nil
}

// completion builds the callback that closes a session once its fetch ends
func (c *Controller) completion(key sessionKey) download.Completion {
	return func(outcome download.Outcome) {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if outcome.Err != nil {
			c.finishSession(key, StateError)
			c.logger.Error("fetch failed", "conversation_id", key.conversationID, "job_id", outcome.Job.ID, "error", outcome.Err)
			if _, err := c.gateway.SendText(ctx, key.conversationID, c.texts.GetText(i18n.KeyDownloadFailed)); err != nil {
				c.logger.Error("failure notice not sent", "conversation_id", key.conversationID, "error", err)
			}
			return
		}

		c.finishSession(key, StateDelivered)

		text := c.texts.Format(i18n.KeyReady, outcome.Title, outcome.PublicURL) +
			"\n\n" + c.texts.Format(i18n.KeyRetentionNotice, c.retentionMinutes(outcome.Artifact))
		if _, err := c.gateway.SendLink(ctx, key.conversationID, text, c.texts.GetText(i18n.KeyDownloadButton), outcome.PublicURL); err != nil {
			c.logger.Error("download link not sent", "conversation_id", key.conversationID, "job_id", outcome.Job.ID, "error", err)
			return
		}
		c.logger.Info("download link delivered", "conversation_id", key.conversationID, "job_id", outcome.Job.ID, "url", outcome.PublicURL)
	}
}

// retentionMinutes is the advertised lifetime of a link, rounded up
func (c *Controller) retentionMinutes(artifact *model.PublishedArtifact) int {
	window := c.cfg.RetentionWindow
	if artifact != nil {
		window = artifact.ExpiresAt.Sub(artifact.PublishedAt)
	}
	return int(math.Ceil(window.Minutes()))
}

// finishSession moves a session into a terminal state and forgets it
func (c *Controller) finishSession(key sessionKey, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[key]
	if !ok {
		return
	}
	if err := session.transition(state, c.now()); err != nil {
		c.logger.Warn("session transition rejected", "conversation_id", key.conversationID, "error", err)
	}
	delete(c.sessions, key)
}

// failSession ends a session that has not started fetching
func (c *Controller) failSession(key sessionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session, ok := c.sessions[key]; ok && session.State != StateFetching {
		delete(c.sessions, key)
	}
}

func (c *Controller) dropSession(key sessionKey) {
	c.mu.Lock()
	delete(c.sessions, key)
	c.mu.Unlock()
}

func (c *Controller) answer(ctx context.Context, callbackID, notice string) {
	if callbackID == "" {
		return
	}
	if err := c.gateway.AnswerButton(ctx, callbackID, notice); err != nil {
		c.logger.Warn("button answer failed", "callback_id", callbackID, "error", err)
	}
}

// buttonLabel shortens a title to fit on an inline button
func buttonLabel(title string) string {
	runes := []rune(title)
	if len(runes) <= maxButtonLabelRunes {
		return title
	}
	return string(runes[:maxButtonLabelRunes-len(platform.TitleTruncateSuffix)]) + platform.TitleTruncateSuffix
}
