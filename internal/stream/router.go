// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package stream routes analyzer output lines onto typed topics.
package stream

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/uprightd/internal/bus"
	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/metrics"
	"github.com/ManuGH/uprightd/internal/protocol"
)

// Source is the read side of a live analyzer process.
type Source interface {
	// Lines streams structured output; closes when the stream ends.
	Lines() <-chan string
	// DiagLines streams diagnostic output verbatim.
	DiagLines() <-chan string
}

// Topics groups the typed fan-out channels one session publishes on.
type Topics struct {
	Postures *bus.Topic[protocol.PostureResult]
	Errors   *bus.Topic[protocol.DetectionError]
	Statuses *bus.Topic[protocol.StatusUpdate]
}

// NewTopics creates the standard topic set.
func NewTopics() *Topics {
	return &Topics{
		Postures: bus.NewTopic[protocol.PostureResult]("postures"),
		Errors:   bus.NewTopic[protocol.DetectionError]("errors"),
		Statuses: bus.NewTopic[protocol.StatusUpdate]("statuses"),
	}
}

// Close closes all topics.
func (t *Topics) Close() {
	t.Postures.Close()
	t.Errors.Close()
	t.Statuses.Close()
}

// Router decodes one analyzer's output and publishes it onto Topics. It
// always drains its source to the end so the producing process can reach EOF
// even when no subscriber is listening.
type Router struct {
	topics *Topics
	logger zerolog.Logger
}

// NewRouter creates a Router publishing onto topics.
func NewRouter(topics *Topics) *Router {
	return &Router{
		topics: topics,
		logger: log.WithComponent("stream"),
	}
}

// Run consumes both streams of src until they close.
func (r *Router) Run(src Source) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.route(src.Lines())
	}()
	go func() {
		defer wg.Done()
		r.relayDiagnostics(src.DiagLines())
	}()
	wg.Wait()
}

func (r *Router) route(lines <-chan string) {
	for line := range lines {
		d := protocol.Decode([]byte(line))
		if d.Malformed {
			metrics.IncDecodeFailure()
			r.logger.Warn().
				Str(log.FieldEvent, "stream.undecodable").
				Str("line", line).
				Msg("undecodable analyzer output line")
		}

		metrics.IncPostureEvent(string(d.Kind))
		switch d.Kind {
		case protocol.KindPosture:
			r.topics.Postures.Publish(d.Posture)
		case protocol.KindError:
			r.topics.Errors.Publish(d.Err)
		case protocol.KindStatus:
			r.topics.Statuses.Publish(d.Status)
		}
	}
}

// relayDiagnostics forwards the analyzer's own log lines verbatim.
func (r *Router) relayDiagnostics(lines <-chan string) {
	for line := range lines {
		r.logger.Debug().
			Str(log.FieldEvent, "analyzer.diagnostic").
			Msg(line)
	}
}
