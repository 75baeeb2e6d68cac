// Package rod provides a session.Provider backed by a headless Chromium
// driven through the DevTools protocol. Each session is an incognito page.
package rod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/xraph/berth/id"
	"github.com/xraph/berth/session"
)

// Selectors of the terminal's inquiry form.
const (
	SelectInquiryType = "select#InquiryType"
	InputKey          = "textarea#Key"
	ButtonSubmit      = "button#btnTosInquiry"

	// InquiryByContainer is the inquiry-type option for availability by
	// container number.
	InquiryByContainer = "ContainerAvailabilityByCntr"
)

// Compile-time interface checks.
var (
	_ session.Provider = (*Provider)(nil)
	_ session.Session  = (*Session)(nil)
)

// Config configures the browser provider.
type Config struct {
	// SearchURL is the terminal's inquiry page.
	SearchURL string

	// ControlURL connects to an existing browser. Empty launches one.
	ControlURL string

	Headless bool

	// NavigationTimeout bounds page loads and form interactions.
	NavigationTimeout time.Duration

	// SettleTimeout bounds the wait for the results to render after submit.
	SettleTimeout time.Duration
}

func (c Config) navTimeout() time.Duration {
	if c.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

func (c Config) settleTimeout() time.Duration {
	if c.SettleTimeout <= 0 {
		return 15 * time.Second
	}
	return c.SettleTimeout
}

// Provider lazily starts one browser and opens an incognito page per
// session.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// New returns a Provider. The browser starts on the first Open.
func New(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger}
}

func (p *Provider) connect(ctx context.Context) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return p.browser, nil
		}
		p.logger.Warn("stale browser connection, reconnecting")
		_ = p.browser.Close()
		p.browser = nil
	}

	controlURL := p.cfg.ControlURL
	if controlURL == "" {
		u, err := launcher.New().
			Headless(p.cfg.Headless).
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Launch()
		if err != nil {
			return nil, fmt.Errorf("rod: launch browser: %w", err)
		}
		controlURL = u
	}

	// The browser outlives the caller's request.
	b := rod.New().ControlURL(controlURL).Context(context.WithoutCancel(ctx))
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("rod: connect: %w", err)
	}
	p.browser = b
	p.logger.Info("browser connected", slog.String("control_url", controlURL))
	return b, nil
}

// Open creates an incognito page.
func (p *Provider) Open(ctx context.Context) (session.Session, error) {
	b, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("rod: incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("rod: open page: %w", err)
	}
	return &Session{
		id:        id.NewSessionID(),
		cfg:       p.cfg,
		logger:    p.logger,
		incognito: incognito,
		page:      page,
	}, nil
}

// Close shuts the browser down.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}

// Session is one incognito page.
type Session struct {
	id        id.SessionID
	cfg       Config
	logger    *slog.Logger
	incognito *rod.Browser
	page      *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID { return s.id }

// Search fills the inquiry form for containerID and returns the rendered
// results page.
func (s *Session) Search(ctx context.Context, containerID string) (string, error) {
	page := s.page.Context(ctx)
	nav := page.Timeout(s.cfg.navTimeout())

	if err := nav.Navigate(s.cfg.SearchURL); err != nil {
		return "", fmt.Errorf("rod: navigate: %w", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return "", fmt.Errorf("rod: wait load: %w", err)
	}

	sel, err := nav.Element(SelectInquiryType)
	if err != nil {
		return "", fmt.Errorf("rod: inquiry type: %w", err)
	}
	option := `option[value="` + InquiryByContainer + `"]`
	if err := sel.Select([]string{option}, true, rod.SelectorTypeCSSSector); err != nil {
		return "", fmt.Errorf("rod: select inquiry type: %w", err)
	}

	key, err := nav.Element(InputKey)
	if err != nil {
		return "", fmt.Errorf("rod: key input: %w", err)
	}
	if err := key.Input(containerID); err != nil {
		return "", fmt.Errorf("rod: type container id: %w", err)
	}

	btn, err := nav.Element(ButtonSubmit)
	if err != nil {
		return "", fmt.Errorf("rod: submit button: %w", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("rod: submit: %w", err)
	}

	if err := page.WaitIdle(s.cfg.settleTimeout()); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", err
		}
		s.logger.Warn("results did not settle, reading page anyway",
			slog.String("session_id", s.id.String()),
			slog.String("container_id", containerID),
			slog.String("error", err.Error()),
		)
	}

	doc, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("rod: read page: %w", err)
	}
	return doc, nil
}

// Close closes the page and its incognito context.
func (s *Session) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.page.Close(), s.incognito.Close())
	})
	return s.closeErr
}
