// Package console is a line-oriented register console for LC709203F gauges.
// Commands travel over the bus as HAL controls on a gauge's battery
// capability; the gauge answers register accesses on event/reg.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/drivers/lc709203f"
	"gaugecode-go/types"

	"github.com/google/shlex"
)

const DefaultTimeout = 500 * time.Millisecond

var (
	ErrUsage    = errors.New("usage")
	ErrNoAnswer = errors.New("no answer from device")
)

const help = `commands:
  help                          this text
  regs                          list the register catalog
  get  <dev> <reg>              read a register
  set  <dev> <reg> <value>      write a register (decimal or 0x..)
  mode <dev> sleep|operational  set IC power mode
  init <dev> before|initial     start RSOC initialisation
  show <dev>                    latest value and status
`

// Console executes commands against gauges in one capability domain.
type Console struct {
	conn    *bus.Connection
	out     io.Writer
	domain  string
	timeout time.Duration
}

func New(conn *bus.Connection, out io.Writer) *Console {
	return &Console{conn: conn, out: out, domain: "power", timeout: DefaultTimeout}
}

// WithDomain selects the capability domain gauges are published under.
func (c *Console) WithDomain(d string) *Console {
	if d != "" {
		c.domain = d
	}
	return c
}

func (c *Console) WithTimeout(d time.Duration) *Console {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Run reads commands from in until EOF or ctx is done. Command errors are
// printed and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.Exec(ctx, sc.Text()); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
		fmt.Fprint(c.out, "> ")
	}
	return sc.Err()
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(c.out, help)
		return nil
	case "regs":
		c.printRegs()
		return nil
	case "get":
		if len(args) != 2 {
			return usage("get <dev> <reg>")
		}
		return c.regAccess(ctx, args[0], "reg_read", types.RegRead{Reg: args[1]})
	case "set":
		if len(args) != 3 {
			return usage("set <dev> <reg> <value>")
		}
		v, err := strconv.ParseUint(args[2], 0, 16)
		if err != nil {
			return fmt.Errorf("value %q: %w", args[2], err)
		}
		return c.regAccess(ctx, args[0], "reg_write", types.RegWrite{Reg: args[1], Value: uint16(v)})
	case "mode":
		if len(args) != 2 {
			return usage("mode <dev> sleep|operational")
		}
		var p types.GaugePowerMode
		switch strings.ToLower(args[1]) {
		case "sleep":
			p.Sleep = true
		case "operational", "op":
		default:
			return usage("mode <dev> sleep|operational")
		}
		return c.control(ctx, args[0], "set_power_mode", p)
	case "init":
		if len(args) != 2 {
			return usage("init <dev> before|initial")
		}
		var p types.GaugeInitRSOC
		switch strings.ToLower(args[1]) {
		case "before":
			p.Before = true
		case "initial":
		default:
			return usage("init <dev> before|initial")
		}
		return c.control(ctx, args[0], "init_rsoc", p)
	case "show":
		if len(args) != 1 {
			return usage("show <dev>")
		}
		return c.show(args[0])
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

func usage(s string) error { return fmt.Errorf("%w: %s", ErrUsage, s) }

func (c *Console) printRegs() {
	fmt.Fprintf(c.out, "%-24s %-4s %-5s %-3s %-7s %s\n", "NAME", "ADDR", "WIDTH", "RW", "DEFAULT", "DESCRIPTION")
	for _, r := range lc709203f.Registers() {
		def := "-"
		if r.HasDefault {
			def = fmt.Sprintf("0x%04X", r.Default)
		}
		fmt.Fprintf(c.out, "%-24s 0x%02X %-5d %-3s %-7s %s\n", r.Name, r.Addr, r.Width, r.Access, def, r.Doc)
	}
}

// ---- bus plumbing ----

func (c *Console) capTopic(dev string, rest ...any) bus.Topic {
	return bus.T("hal", "cap", c.domain, string(types.KindBattery), dev).Append(rest...)
}

// request sends a control and waits for the HAL reply.
func (c *Console) request(ctx context.Context, dev, verb string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(c.capTopic(dev, "control", verb), payload, false))
	if err != nil {
		return ErrNoAnswer
	}
	switch r := m.Payload.(type) {
	case types.OKReply:
		return nil
	case types.ErrorReply:
		return errors.New(r.Error)
	}
	return fmt.Errorf("unexpected reply %T", m.Payload)
}

func (c *Console) control(ctx context.Context, dev, verb string, payload any) error {
	if err := c.request(ctx, dev, verb, payload); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "ok")
	return nil
}

// regAccess issues a register control and prints the matching event/reg.
func (c *Console) regAccess(ctx context.Context, dev, verb string, payload any) error {
	sub := c.conn.Subscribe(c.capTopic(dev, "event", "reg"))
	defer c.conn.Unsubscribe(sub)

	if err := c.request(ctx, dev, verb, payload); err != nil {
		return err
	}
	want := verb == "reg_write"
	t := time.NewTimer(c.timeout)
	defer t.Stop()
	for {
		select {
		case m, ok := <-sub.Channel():
			if !ok {
				return ErrNoAnswer
			}
			rv, ok := m.Payload.(types.RegValue)
			if !ok || rv.Write != want {
				continue
			}
			if rv.Error != "" {
				return fmt.Errorf("%s: %s", rv.Reg, rv.Error)
			}
			op := "="
			if rv.Write {
				op = "<-"
			}
			fmt.Fprintf(c.out, "%s (0x%02X) %s 0x%04X (%d)\n", rv.Reg, rv.Addr, op, rv.Value, rv.Value)
			return nil
		case <-t.C:
			return ErrNoAnswer
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// show prints the retained value and status of dev.
func (c *Console) show(dev string) error {
	found := false
	for _, leaf := range []string{"value", "status"} {
		sub := c.conn.Subscribe(c.capTopic(dev, leaf))
		select {
		case m := <-sub.Channel():
			found = true
			switch p := m.Payload.(type) {
			case types.GaugeValue:
				fmt.Fprintf(c.out, "rsoc=%d%% ite=%d.%d%% cell=%dmV temp=%sC dir=%s mode=%s\n",
					p.RSOC, p.ITEPermille/10, p.ITEPermille%10, p.CellMilliV,
					deci(p.DeciC), p.Direction, p.PowerMode)
			case types.CapabilityStatus:
				fmt.Fprintf(c.out, "link=%s", p.Link)
				if p.Error != "" {
					fmt.Fprintf(c.out, " error=%s", p.Error)
				}
				fmt.Fprintln(c.out)
			default:
				fmt.Fprintf(c.out, "%s: %v\n", leaf, p)
			}
		case <-time.After(20 * time.Millisecond):
		}
		c.conn.Unsubscribe(sub)
	}
	if !found {
		return fmt.Errorf("no gauge %q", dev)
	}
	return nil
}

// deci formats tenths with one decimal place.
func deci(v int16) string {
	sign := ""
	n := int(v)
	if n < 0 {
		sign, n = "-", -n
	}
	return sign + strconv.Itoa(n/10) + "." + strconv.Itoa(n%10)
}
