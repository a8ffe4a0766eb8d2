package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/env"
	"github.com/robotalks/backpack/pkg/msp"
	"github.com/robotalks/backpack/pkg/transport"
	"github.com/robotalks/backpack/pkg/transport/dial"
)

// Shell provides ishell backed interactive shell acting as a peer of
// backpacks.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell   *ishell.Shell
	Config  config.Device
	Local   config.Address
	Session *Session
}

// Session is an open link with a selected target backpack.
type Session struct {
	Ctx    context.Context
	Cancel func()
	Link   transport.Link
	Target config.Address

	respCh chan *msp.Packet
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
	respQueueSize     = 8
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	localAddr  string
	target     string

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&localAddr, "addr", localAddr, "Local peer address (12 hex digits).")
	flag.StringVar(&target, "target", target, "Backpack address to connect at start.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf config.Device) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     time.Second,

		Shell:  ishell.New(),
		Config: conf,
		Local:  env.AddressFromID(env.MachineID() + "/ctl"),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Connect opens the link and selects the target backpack. Broadcast
// reaches every backpack listening to anyone.
func (s *Shell) Connect(targetAddr config.Address) error {
	link, err := dial.Open(s.Config.Link.URL, s.Local)
	if err != nil {
		return err
	}
	sess := &Session{Link: link, Target: targetAddr, respCh: make(chan *msp.Packet, respQueueSize)}
	sess.Ctx, sess.Cancel = context.WithCancel(context.Background())
	link.SetReceiver(sess.receive)
	if s.Session != nil {
		s.Session.Cancel()
	}
	s.Session = sess
	go link.Run(sess.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", targetAddr))
	return nil
}

// Disconnect closes the current link.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Cancel()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

func (sess *Session) receive(src config.Address, data []byte) {
	if sess.Target != transport.Broadcast && src != sess.Target {
		return
	}
	var codec msp.Codec
	for _, pkt := range codec.Decode(data) {
		select {
		case sess.respCh <- pkt:
		default:
		}
	}
}

// Send transmits a command to the target.
func (sess *Session) Send(pkt *msp.Packet) error {
	return sess.Link.Send(sess.Target, pkt.Bytes())
}

// Request sends pkt and waits for the reply with the same function.
func (sess *Session) Request(pkt *msp.Packet, timeout time.Duration) (*msp.Packet, error) {
drain:
	for {
		select {
		case <-sess.respCh:
		default:
			break drain
		}
	}
	if err := sess.Send(pkt); err != nil {
		return nil, err
	}
	deadline := time.After(timeout)
	for {
		select {
		case resp := <-sess.respCh:
			if resp.Function != pkt.Function || resp.Direction == msp.DirCommand {
				continue
			}
			if resp.Direction == msp.DirError {
				return resp, fmt.Errorf("%s rejected", pkt)
			}
			return resp, nil
		case <-deadline:
			return nil, msp.ErrTimeout
		}
	}
}

// DoCommand sends a command which has no reply.
func DoCommand(c *ishell.Context, pkt *msp.Packet) error {
	s := ShellFrom(c)
	if err := s.Session.Send(pkt); err != nil {
		c.Err(err)
		return err
	}
	s.print(c, map[string]interface{}{"ok": true}, "OK")
	return nil
}

// DoQuery sends a request and prints the reply through format.
func DoQuery(c *ishell.Context, pkt *msp.Packet, format func([]byte) (interface{}, string)) error {
	s := ShellFrom(c)
	resp, err := s.Session.Request(pkt, s.Timeout)
	if err != nil {
		c.Err(err)
		return err
	}
	val, text := format(resp.Payload)
	s.print(c, val, text)
	return nil
}

func (s *Shell) print(c *ishell.Context, val interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(val)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if localAddr != "" {
		addr, err := config.ParseAddress(localAddr)
		if err != nil {
			log.Fatalln(err)
		}
		s.Local = addr
	}
	if target != "" {
		addr, err := parseTarget(target)
		if err != nil {
			log.Fatalln(err)
		}
		if err := s.Connect(addr); err != nil {
			log.Fatalf("connect %s failed: %v", target, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func parseTarget(s string) (config.Address, error) {
	if s == "" || s == "*" || s == "broadcast" {
		return transport.Broadcast, nil
	}
	return config.ParseAddress(s)
}

var (
	// ConnectCmd opens the link to a backpack.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[ADDR|broadcast]",
		Func: func(c *ishell.Context) {
			var arg string
			if len(c.Args) > 0 {
				arg = c.Args[0]
			}
			addr, err := parseTarget(arg)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Connect(addr); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.NewDevice()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).Run(flag.Args()...)
}
