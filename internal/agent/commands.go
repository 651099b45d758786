package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hassdriver/internal/audit"
)

// handleCommand is the MQTT handler for hassdriver/command/<device>/#.
// Every well-addressed command is answered on the matching ack topic,
// including malformed ones.
func (a *Agent) handleCommand(topic string, payload []byte) error {
	point, ok := a.topics.CommandPoint(a.device, topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %s", ErrInvalidCommand, topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		cmd.ID = uuid.NewString()
		a.publishAck(point, cmd, nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err))
		return nil
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	a.logInfo("received command",
		"command_id", cmd.ID,
		"device", a.device,
		"point", point,
		"action", cmd.Action,
		"source", cmd.Source)

	ctx, cancel := context.WithTimeout(a.ctx, commandTimeout)
	defer cancel()

	value, err := a.run(ctx, point, cmd)
	a.publishAck(point, cmd, value, err)
	if err != nil {
		a.logWarn("command failed", "command_id", cmd.ID, "point", point, "action", cmd.Action, "error", err)
	}
	return nil
}

// Execute runs one command against point, or against every point when
// point is AllPoints. It is the code path shared by MQTT commands and the
// REST API.
func (a *Agent) Execute(ctx context.Context, point string, cmd CommandMessage) (any, error) {
	return a.run(ctx, point, cmd)
}

// run executes cmd and audits it when it changes hub state.
func (a *Agent) run(ctx context.Context, point string, cmd CommandMessage) (any, error) {
	value, err := a.execute(ctx, point, cmd)
	if a.audit != nil && (cmd.Action == ActionSet || cmd.Action == ActionRevert) {
		e := &audit.Entry{
			CommandID: cmd.ID,
			Device:    a.device,
			Point:     point,
			Action:    cmd.Action,
			Value:     value,
			Source:    cmd.Source,
			Status:    audit.StatusSuccess,
		}
		if err != nil {
			e.Status, e.ErrorCode, e.Error = audit.StatusFailed, ErrorCode(err), err.Error()
			e.Value = cmd.Value
		}
		// The command has already run; an audit failure must not fail it.
		if auditErr := a.audit.Record(context.WithoutCancel(ctx), e); auditErr != nil {
			a.logWarn("recording command audit failed", "point", point, "error", auditErr)
		}
	}
	return value, err
}

func (a *Agent) execute(ctx context.Context, point string, cmd CommandMessage) (any, error) {
	if point == AllPoints {
		switch cmd.Action {
		case ActionRevert:
			return nil, a.RevertAll(ctx)
		case ActionScrape, ActionGet:
			return a.Scrape(ctx).Values, nil
		}
		return nil, fmt.Errorf("%w: action %q is not valid for %s", ErrInvalidCommand, cmd.Action, AllPoints)
	}

	switch cmd.Action {
	case ActionSet:
		if cmd.Value == nil {
			return nil, fmt.Errorf("%w: set needs a value", ErrInvalidCommand)
		}
		return a.SetPoint(ctx, point, cmd.Value)
	case ActionGet:
		return a.GetPoint(ctx, point)
	case ActionRevert:
		return nil, a.RevertPoint(ctx, point)
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
}

func (a *Agent) publishAck(point string, cmd CommandMessage, value any, err error) {
	a.publish(a.topics.Ack(a.device, point), newAck(a.device, point, cmd, value, err), false)
}
