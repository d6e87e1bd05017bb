package extcontrol

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/osclink"
)

const (
	addrPrefix  = "/markermatic"
	listenHost  = "0.0.0.0"
	sourceOSC   = "osc"
	sourceMIDI  = "mmc"
	argFormBase = addrPrefix + "/v4"
)

func (c *Controller) routes() {
	c.router.Handle(addrPrefix+"/mode/*", func(msg *osc.Message) { c.onMode(lastSegment(msg.Address)) })
	c.router.Handle(addrPrefix+"/transport/*", func(msg *osc.Message) { c.onTransport(lastSegment(msg.Address)) })
	c.router.Handle(addrPrefix+"/marker", c.onMarker)

	c.router.Handle(argFormBase+"/mode", func(msg *osc.Message) {
		if raw, ok := osclink.String(msg, 0); ok {
			c.onMode(raw)
		}
	})
	c.router.Handle(argFormBase+"/transport", func(msg *osc.Message) {
		if raw, ok := osclink.String(msg, 0); ok {
			c.onTransport(raw)
		}
	})
	c.router.Handle(argFormBase+"/marker", c.onMarker)

	c.router.Default(func(msg *osc.Message) {
		c.logger.Debug("ignoring external osc message", "address", msg.Address)
	})
}

func (c *Controller) serveOSC(ctx context.Context) error {
	return c.sock.Run(ctx, c.logger, listenHost, c.deps.Config.OSCPort, nil, func(dg osclink.Datagram) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("external osc handler panicked", "panic", fmt.Sprint(r))
			}
		}()
		msgs, err := osclink.Decode(dg.Data)
		if err != nil {
			c.logger.Debug("dropping undecodable external packet", "error", err.Error())
			return
		}
		for _, msg := range msgs {
			c.router.Dispatch(msg)
		}
	})
}

func (c *Controller) onMode(raw string) {
	mode, err := cue.ParseMode(raw)
	if err != nil {
		c.logger.Warn("ignoring external mode request", "error", err.Error())
		return
	}
	c.requestMode(mode)
}

func (c *Controller) onTransport(raw string) {
	action, err := cue.ParseTransportAction(raw)
	if err != nil {
		c.logger.Warn("ignoring external transport request", "error", err.Error())
		return
	}
	c.requestTransport(action, sourceOSC)
}

func (c *Controller) onMarker(msg *osc.Message) {
	name, _ := osclink.String(msg, 0)
	c.requestMarker(strings.TrimSpace(name))
}

func lastSegment(address string) string {
	return address[strings.LastIndex(address, "/")+1:]
}
