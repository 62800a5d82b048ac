package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	partychat "github.com/partychat/partychat-go"
	"github.com/spf13/cobra"
)

var (
	chatEchoWindow time.Duration
	chatBacklog    int
)

func init() {
	chatCmd.Flags().DurationVar(&chatEchoWindow, "echo-window", 0, "merge the server echo of your own message into the local copy when it arrives within this window")
	chatCmd.Flags().IntVar(&chatBacklog, "backlog", 20, "messages to print when switching conversations")
	rootCmd.AddCommand(chatCmd)
}

const chatHelp = `Commands:
  /join <room>        leave the current room and join another
  /code <code>        join a room by invite code
  /dm <id> [user]     open a private conversation
  /start <user-id>    start a private conversation with a user
  /reply <id>         reply to a message in this conversation
  /cancel             drop the pending reply
  /sticker <file>     send a sticker
  /read               mark this private conversation read
  /threads            list private conversations
  /who                list online users
  /quit               exit
Anything else is sent as a message.`

var chatCmd = &cobra.Command{
	Use:   "chat [room]",
	Short: "Chat interactively",
	Long:  "Connect to the server, join a room (General by default) and chat from the terminal.\n\n" + chatHelp,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustConfig()
		logger := newLogger(cfg.Default.Env, cfg.Default.LogLevel)

		storage, closer, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client := getClient(cfg)
		ws := client.Realtime().ConnectWS(&partychat.RealtimeConfig{
			AutoReconnect: true,
			Logger:        logger,
		})

		opts := []partychat.EngineOption{
			partychat.WithTransport(ws),
			partychat.WithStorage(storage),
			partychat.WithCollaborators(client.Collaborators()),
			partychat.WithLogger(logger),
		}
		if chatEchoWindow > 0 {
			opts = append(opts, partychat.WithEchoSuppression(chatEchoWindow))
		}
		engine := partychat.NewEngine(cfg.Default.Username, opts...)

		view := &chatView{engine: engine, backlog: chatBacklog, printed: map[partychat.ConversationKey]int{}}
		view.attach()
		ws.OnEvent(func(ev partychat.Event) {
			if err := engine.Handle(ctx, ev); err != nil {
				logger.Debug("event_rejected", "err", err)
			}
		})
		ws.OnReconnecting(func(attempt int, delay time.Duration) {
			view.println(formatFeedback(fmt.Sprintf("connection lost, retry %d in %s", attempt, delay.Round(time.Second))))
		})

		if err := ws.Connect(ctx); err != nil {
			return err
		}
		defer ws.Disconnect()

		room := partychat.DefaultRoom
		if len(args) == 1 {
			room = args[0]
		}
		if err := engine.JoinRoom(ctx, room); err != nil {
			return err
		}
		if err := engine.HydrateThreads(ctx); err != nil {
			logger.Debug("threads_unavailable", "err", err)
		}

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := view.run(ctx, line)
				if err != nil {
					view.println(formatFeedback(err.Error()))
				}
				if quit {
					return nil
				}
			}
		}
	},
}

// chatView prints engine state as it changes.
type chatView struct {
	engine  *partychat.Engine
	backlog int

	mu      sync.Mutex
	printed map[partychat.ConversationKey]int
	unread  int
}

func (v *chatView) println(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Println(s)
}

func (v *chatView) attach() {
	v.engine.On(partychat.TopicRoomChanged, func(_ string, payload any) {
		key, _ := payload.(partychat.ConversationKey)
		v.showConversation(key)
	})
	v.engine.On(partychat.TopicConversationUpdated, func(_ string, payload any) {
		key, _ := payload.(partychat.ConversationKey)
		if key == v.engine.Active() {
			v.showNew(key)
		}
	})
	v.engine.On(partychat.TopicFeedback, func(_ string, payload any) {
		text, _ := payload.(string)
		v.println(formatFeedback(text))
	})
	v.engine.On(partychat.TopicThreadsUpdated, func(_ string, _ any) {
		total := v.engine.TotalUnread()
		v.mu.Lock()
		changed := total > v.unread
		v.unread = total
		v.mu.Unlock()
		if changed {
			v.println(unreadStyle.Render(fmt.Sprintf("(%d unread private messages, /threads to list)", total)))
		}
	})
}

func (v *chatView) showConversation(key partychat.ConversationKey) {
	if key.IsZero() {
		v.println(formatFeedback("no conversation open"))
		return
	}
	messages := v.engine.Conversation(key)
	v.mu.Lock()
	defer v.mu.Unlock()
	title := key.String()
	if key.IsRoom() {
		title += " (policy: " + v.engine.PolicyLabel(key.ID) + ")"
	} else if p := v.engine.ActivePartner(); p.Username != "" {
		title += " with " + p.Username
	}
	fmt.Println(formatHeader(title))
	start := 0
	if len(messages) > v.backlog {
		start = len(messages) - v.backlog
	}
	for _, m := range messages[start:] {
		fmt.Println(formatMessage(m))
	}
	v.printed[key] = len(messages)
}

// showNew prints messages appended since the last print. A shorter log means
// history was replaced, so the whole view is redrawn.
func (v *chatView) showNew(key partychat.ConversationKey) {
	messages := v.engine.Conversation(key)
	v.mu.Lock()
	n := v.printed[key]
	v.mu.Unlock()
	if len(messages) < n || len(messages)-n > v.backlog {
		v.showConversation(key)
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range messages[n:] {
		fmt.Println(formatMessage(m))
	}
	v.printed[key] = len(messages)
}

// run executes one input line. It reports whether the user asked to quit.
func (v *chatView) run(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, v.engine.SendText(ctx, line)
	}

	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]
	arg := strings.TrimSpace(strings.TrimPrefix(line, cmd))
	e := v.engine

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		v.println(chatHelp)
	case "/join":
		return false, e.JoinRoom(ctx, arg)
	case "/code":
		room, err := e.JoinByCode(ctx, arg)
		if err == nil {
			v.println(formatFeedback("Joined room: " + room))
		}
		return false, err
	case "/dm":
		if len(rest) == 0 {
			return false, errors.New("usage: /dm <conversation-id> [username]")
		}
		partner := partychat.Partner{}
		if len(rest) > 1 {
			partner.Username = rest[1]
		}
		return false, e.OpenPrivate(ctx, rest[0], partner)
	case "/start":
		if arg == "" {
			return false, errors.New("usage: /start <user-id>")
		}
		_, err := e.StartPrivate(ctx, arg)
		return false, err
	case "/reply":
		if err := e.SetReply(arg); err != nil {
			return false, err
		}
		if ref := e.PendingReply(); ref != nil {
			v.println(replyStyle.Render("replying to " + ref.Sender + ": " + partychat.Truncate(ref.Snippet, partychat.DefaultPreviewLimit)))
		}
	case "/cancel":
		e.CancelReply()
	case "/sticker":
		return false, e.SendSticker(ctx, arg)
	case "/read":
		key := e.Active()
		if !key.IsPrivate() {
			return false, errors.New("not in a private conversation")
		}
		return false, e.MarkRead(ctx, key.ID)
	case "/threads":
		for _, t := range e.Threads() {
			v.println(formatThread(t))
		}
	case "/who":
		for _, u := range e.Presence() {
			v.println("  " + u.Username)
		}
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}
