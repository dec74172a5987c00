package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gwi.com/finance-chat/internal/core"
	"gwi.com/finance-chat/internal/core/catalog"
	"gwi.com/finance-chat/internal/store"
)

const helpText = `Type a question to chat. Commands:
  /login <identity>    sign in (history is kept per identity)
  /logout              continue anonymously
  /new                 start a new chat
  /history [query]     list your chats, optionally filtered
  /open <n|chat-id>    open a chat from the last /history listing or by id
  /delete [n|chat-id]  delete a chat (default: the current one)
  /suggestions         list suggested questions
  /suggest <n>         ask suggested question n in a new chat
  /quit                exit`

// REPL is the terminal presentation of one chat session.
type REPL struct {
	svc     *core.ChatService
	session *core.ChatSession
	out     io.Writer

	// entries of the last /history listing, for numbered /open and /delete
	listed []store.ChatHistoryEntry
}

func NewREPL(ctx context.Context, svc *core.ChatService, id store.Identity, out io.Writer) *REPL {
	return &REPL{
		svc:     svc,
		session: svc.NewSession(ctx, id),
		out:     out,
	}
}

func (r *REPL) Session() *core.ChatSession { return r.session }

// Run reads lines from in until EOF, /quit or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	r.printf("%s\n", helpText)
	r.prompt()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := r.Handle(ctx, scanner.Text()); quit {
			return nil
		}
		r.prompt()
	}
	return scanner.Err()
}

// Handle executes one input line and reports whether the user asked to quit.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.printMessages(r.session.Send(ctx, line))
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		r.printf("%s\n", helpText)
	case "/login":
		if arg == "" {
			r.printf("usage: /login <identity>\n")
			return false
		}
		r.session.SetIdentity(ctx, store.Identity(arg))
		r.listed = nil
		r.printf("signed in as %s, chat %s\n", arg, r.session.State().ChatID)
	case "/logout":
		r.session.SetIdentity(ctx, "")
		r.listed = nil
		r.printf("signed out, chat %s (not saved)\n", r.session.State().ChatID)
	case "/new":
		r.printf("new chat %s\n", r.session.NewChat(ctx))
	case "/history":
		r.listed = r.session.History(ctx, arg)
		if len(r.listed) == 0 {
			r.printf("no chats\n")
			return false
		}
		for i, e := range r.listed {
			r.printf("%2d. %s  %s\n", i+1, e.Title, e.ID)
		}
	case "/open":
		chatID, ok := r.resolveChat(arg)
		if !ok {
			return false
		}
		st := r.session.Open(ctx, chatID)
		r.printf("chat %s (%s)\n", st.ChatID, st.Phase)
		r.printMessages(st.Messages)
	case "/delete":
		if arg == "" {
			arg = r.session.State().ChatID
		}
		chatID, ok := r.resolveChat(arg)
		if !ok {
			return false
		}
		if r.session.State().Identity.IsZero() {
			r.printf("sign in to manage chats\n")
			return false
		}
		r.listed = r.session.DeleteChat(ctx, chatID)
		r.printf("deleted %s, current chat %s\n", chatID, r.session.State().ChatID)
	case "/suggestions":
		for i, s := range catalog.SuggestedQuestions {
			r.printf("%d. %s - %s\n", i+1, s.Title, s.Subtitle)
		}
	case "/suggest":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(catalog.SuggestedQuestions) {
			r.printf("usage: /suggest <1-%d>\n", len(catalog.SuggestedQuestions))
			return false
		}
		question := catalog.SuggestedQuestions[n-1].Title
		r.printf("you: %s\n", question)
		sent, ok, err := r.session.SelectSuggestion(ctx, question)
		if err != nil || !ok {
			return false
		}
		if len(sent) > 1 {
			r.printMessages(sent[1:])
		}
	default:
		r.printf("unknown command %s, try /help\n", cmd)
	}
	return false
}

// resolveChat maps "n" to the n-th entry of the last listing, otherwise
// treats arg as a chat id.
func (r *REPL) resolveChat(arg string) (string, bool) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(r.listed) {
			r.printf("no chat %d in the last /history listing\n", n)
			return "", false
		}
		return r.listed[n-1].ID, true
	}
	if !core.ValidChatID(arg) {
		r.printf("invalid chat id %q\n", arg)
		return "", false
	}
	return arg, true
}

func (r *REPL) printMessages(messages []store.Message) {
	for _, m := range messages {
		if m.Sender == store.SenderBot {
			r.printf("bot: %s\n", m.Text)
		} else {
			r.printf("you: %s\n", m.Text)
		}
	}
}

func (r *REPL) prompt() {
	r.printf("> ")
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
