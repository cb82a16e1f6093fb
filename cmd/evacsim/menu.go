package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/service"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

// commands is what the operator menu drives.
type commands interface {
	TriggerFire(ctx context.Context, building int) (types.PresenceReport, error)
	SimulateAccess(ctx context.Context, badge, building int, action types.Action) error
	Logs(ctx context.Context) ([]string, error)
	Quit()
}

// menu is the operator's text console on the coordinator.
type menu struct {
	cmds      commands
	buildings int
	lines     <-chan string
	out       io.Writer
}

func newMenu(cmds commands, buildings int, in io.Reader, out io.Writer) *menu {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return &menu{cmds: cmds, buildings: buildings, lines: lines, out: out}
}

// errEOF ends the menu when the operator's input runs out.
var errEOF = errors.New("end of input")

// run shows the menu until the operator quits, input ends, or ctx is
// cancelled. Each path quits the coordinator.
func (m *menu) run(ctx context.Context) error {
	defer m.cmds.Quit()

	for {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "1) Trigger fire")
		fmt.Fprintln(m.out, "2) Simulate access")
		fmt.Fprintln(m.out, "3) Show logs")
		fmt.Fprintln(m.out, "4) Quit")

		choice, err := m.prompt(ctx, "Choice: ")
		if err != nil {
			return quietEnd(err)
		}

		switch choice {
		case "1":
			err = m.fire(ctx)
		case "2":
			err = m.simulate(ctx)
		case "3":
			err = m.showLogs(ctx)
		case "4":
			fmt.Fprintln(m.out, "Shutting down.")
			return nil
		default:
			fmt.Fprintf(m.out, "Unknown choice %q.\n", choice)
			continue
		}
		if err != nil {
			if errors.Is(err, errEOF) || errors.Is(err, context.Canceled) {
				return quietEnd(err)
			}
			fmt.Fprintf(m.out, "Error: %v\n", err)
		}
	}
}

func (m *menu) fire(ctx context.Context) error {
	building, err := m.promptBuilding(ctx)
	if err != nil {
		return err
	}

	report, err := m.cmds.TriggerFire(ctx, building)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Occupants in building %d: %d\n", building, len(report.Names))
	for _, name := range report.Names {
		fmt.Fprintf(m.out, " - %s\n", name)
	}
	return nil
}

func (m *menu) simulate(ctx context.Context) error {
	badge, err := m.promptInt(ctx, "Badge id: ")
	if err != nil {
		return err
	}
	building, err := m.promptBuilding(ctx)
	if err != nil {
		return err
	}
	s, err := m.prompt(ctx, "Action (1 = enter, 2 = exit): ")
	if err != nil {
		return err
	}
	action, err := types.ParseAction(s)
	if err != nil {
		return service.ErrInvalidAction
	}

	if err := m.cmds.SimulateAccess(ctx, badge, building, action); err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Command sent to simulator.")
	return nil
}

func (m *menu) showLogs(ctx context.Context) error {
	lines, err := m.cmds.Logs(ctx)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Fprintln(m.out, "(log is empty)")
		return nil
	}
	for _, l := range lines {
		fmt.Fprintln(m.out, l)
	}
	return nil
}

func (m *menu) promptBuilding(ctx context.Context) (int, error) {
	b, err := m.promptInt(ctx, fmt.Sprintf("Building (1-%d): ", m.buildings))
	if err != nil {
		return 0, err
	}
	if b < 1 || b > m.buildings {
		return 0, fmt.Errorf("building %d: %w", b, service.ErrUnknownBuilding)
	}
	return b, nil
}

func (m *menu) promptInt(ctx context.Context, label string) (int, error) {
	s, err := m.prompt(ctx, label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return n, nil
}

func (m *menu) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(m.out, label)
	select {
	case line, ok := <-m.lines:
		if !ok {
			return "", errEOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func quietEnd(err error) error {
	if errors.Is(err, errEOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
