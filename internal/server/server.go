// Package server is the remote collector that receives uploaded batches.
package server

import (
	"bytes"
	"context"
	"sync"

	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/uplink"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type Server struct {
	app    *fiber.App
	cfg    Config
	logger logger.Logger

	mu      sync.Mutex
	entries []uplink.Record
	seen    map[string]struct{}
	// seenOrder holds batch ids oldest first so the set stays bounded.
	seenOrder []string
}

func New(cfg Config, log logger.Logger) *Server {
	if cfg.Keep < 1 {
		cfg.Keep = DefaultKeep
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		cfg:    cfg,
		logger: log,
		seen:   make(map[string]struct{}),
	}

	s.app.Get("/", s.dashboard)
	s.app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	s.app.Get("/readings", s.readings)
	s.app.Post("/upload", s.upload)

	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Int("keep", s.cfg.Keep).Msg("Collector listening")
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) upload(c *fiber.Ctx) error {
	records, err := uplink.Decode(c.Body())
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", c.IP()).Msg("Rejected upload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// Header values alias the request buffer, which fasthttp reuses.
	batchID := utils.CopyString(c.Get(uplink.BatchIDHeader))
	retained, duplicate := s.append(batchID, records)

	s.logger.Info().
		Str("batch_id", batchID).
		Int("entries", len(records)).
		Int("retained", retained).
		Bool("duplicate", duplicate).
		Msg("Batch received")

	return c.JSON(fiber.Map{"status": "received", "entries": len(records)})
}

func (s *Server) readings(c *fiber.Ctx) error {
	return c.JSON(s.Entries())
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, dashboardRows(s.Entries())); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// append adds records unless batchID was already seen and trims the log to
// the configured size.
func (s *Server) append(batchID string, records []uplink.Record) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batchID != "" {
		if _, ok := s.seen[batchID]; ok {
			return len(s.entries), true
		}
		s.remember(batchID)
	}

	s.entries = append(s.entries, records...)
	if over := len(s.entries) - s.cfg.Keep; over > 0 {
		s.entries = append([]uplink.Record(nil), s.entries[over:]...)
	}

	return len(s.entries), false
}

func (s *Server) remember(batchID string) {
	s.seen[batchID] = struct{}{}
	s.seenOrder = append(s.seenOrder, batchID)
	if len(s.seenOrder) > seenBatchLimit {
		delete(s.seen, s.seenOrder[0])
		s.seenOrder = s.seenOrder[1:]
	}
}

// Entries returns a copy of the retained records, oldest first.
func (s *Server) Entries() []uplink.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uplink.Record, len(s.entries))
	copy(out, s.entries)
	return out
}
