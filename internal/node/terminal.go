package node

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

const (
	prompt         = "> "
	spinnerTick    = 100 * time.Millisecond
	imagePrefix    = "received"
	helpText       = "commands: /upload <image>, /chat <text>, /state, /reconnect, /quit; anything else is a question"
	waitingMessage = "waiting for reply"
)

// Conn is the part of a session the terminal drives.
type Conn interface {
	SendText(ctx context.Context, channel, text string, expectReply bool) (string, error)
	SendImageFile(ctx context.Context, channel, path string) error
	State() session.State
	Reconnect()
	Close() error
}

type TerminalOptions struct {
	In  io.Reader
	Out io.Writer
	// SaveDir receives images the host pushes to us.
	SaveDir string
	// Spinner shows a progress spinner while a question is outstanding.
	Spinner bool
	Logger  *logrus.Logger
}

// Terminal serves the answer side: a line-oriented prompt whose questions
// travel to the host and whose answers come back on the response channel.
type Terminal struct {
	in      io.Reader
	out     io.Writer
	saveDir string
	spinner bool
	logger  *logrus.Logger
	now     func() time.Time

	mu sync.Mutex
}

func NewTerminal(opts TerminalOptions) *Terminal {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Terminal{
		in:      opts.In,
		out:     opts.Out,
		saveDir: opts.SaveDir,
		spinner: opts.Spinner,
		logger:  log,
		now:     time.Now,
	}
}

func (t *Terminal) Handlers() session.Handlers {
	return session.Handlers{
		protocol.ChannelKeepAlive: func(_ context.Context, _ session.Sender, msg session.Message) error {
			t.logger.Debugf("Keep-alive: %s", msg.Envelope.Payload)
			return nil
		},
	}
}

// Fallback prints inbound text and saves inbound images.
func (t *Terminal) Fallback(_ context.Context, _ session.Sender, msg session.Message) error {
	if msg.Envelope.IsImage() {
		if t.saveDir == "" {
			t.printf("[%s] image received\n", msg.Channel)
			return nil
		}
		path, err := saveImage(t.saveDir, imagePrefix, msg.Envelope, t.now())
		if err != nil {
			return err
		}
		t.printf("[%s] image saved to %s\n", msg.Channel, path)
		return nil
	}
	t.printf("[%s] %s\n", msg.Channel, msg.Envelope.Payload)
	return nil
}

// Run reads commands until input ends, /quit, or ctx is done.
func (t *Terminal) Run(ctx context.Context, conn Conn) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	t.printf("%s\n", helpText)
	for {
		t.printf("%s", prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			return nil
		}

		quit, err := t.execute(ctx, conn, strings.TrimSpace(line))
		if err != nil {
			t.printf("error: %v\n", err)
		}
		if quit {
			return conn.Close()
		}
	}
}

func (t *Terminal) execute(ctx context.Context, conn Conn, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch {
	case line == "":
		return false, nil

	case cmd == "/quit" || cmd == "/exit":
		return true, nil

	case cmd == "/state":
		t.printf("%s\n", conn.State())
		return false, nil

	case cmd == "/reconnect":
		conn.Reconnect()
		t.printf("reconnecting\n")
		return false, nil

	case cmd == "/help":
		t.printf("%s\n", helpText)
		return false, nil

	case cmd == "/upload":
		if arg == "" {
			return false, errors.New("usage: /upload <image>")
		}
		if err := conn.SendImageFile(ctx, protocol.ChannelUpload, arg); err != nil {
			return false, err
		}
		t.printf("uploaded %s\n", arg)
		return false, nil

	case cmd == "/chat":
		if arg == "" {
			return false, errors.New("usage: /chat <text>")
		}
		reply, err := t.await(ctx, func() (string, error) {
			return conn.SendText(ctx, protocol.ChannelChat, arg, true)
		})
		if err != nil {
			return false, err
		}
		t.printf("%s\n", reply)
		return false, nil

	case strings.HasPrefix(cmd, "/"):
		return false, fmt.Errorf("unknown command %s", cmd)

	default:
		reply, err := t.await(ctx, func() (string, error) {
			return conn.SendText(ctx, protocol.ChannelUser, line, true)
		})
		if err != nil {
			return false, err
		}
		t.printf("%s\n", reply)
		return false, nil
	}
}

// await runs fn, showing a spinner until it returns.
func (t *Terminal) await(ctx context.Context, fn func() (string, error)) (string, error) {
	if !t.spinner {
		return fn()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetDescription(waitingMessage),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(spinnerTick)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.mu.Lock()
				_ = bar.Add(1)
				t.mu.Unlock()
			}
		}
	}()

	reply, err := fn()
	close(done)
	wg.Wait()

	t.mu.Lock()
	_ = bar.Finish()
	t.mu.Unlock()
	return reply, err
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}
