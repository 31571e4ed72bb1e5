package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"margin_bot/internal/models"
	"margin_bot/internal/runner"
	"margin_bot/pkg/logger"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// Fleet: операции над ботами, доступные оператору.
type Fleet interface {
	Start(ctx context.Context, p models.BotParams) (int64, error)
	List() []models.BotSummary
	Pause(ctx context.Context, id int64) error
	PauseAll(ctx context.Context) int
	Resume(ctx context.Context, id int64) error
	ResumeAll(ctx context.Context) int
	Kill(ctx context.Context, id int64, silent bool) error
	KillAll(ctx context.Context, silent bool) int
	KillLiquidate(ctx context.Context, id int64, silent bool) (runner.Result, error)
	Liquidate(id int64, silent bool) error
	LiquidateAll(silent bool) int
	EmergencyStop(ctx context.Context) int
	Load(ctx context.Context, pkg models.Package, bypass bool) ([]int64, error)
	Restart(ctx context.Context, pkg models.Package) ([]int64, error)
}

// PackageReader читает пакет ботов, запечатанный паролем или открытый.
type PackageReader func(path, password string) (models.Package, error)

// ErrExit: оператор завершил сессию.
var ErrExit = errors.New("exit")

const helpText = `Commands :
 help
 start key=value...        : start a new bot (owner chat pair key secret passphrase sandbox your_base your_quote margin_base margin_quote)
 startbypass key=value...  : same, without waiting for the entry point
 pause [id|all]
 resume [id|all]
 kill [id|all] [silent] [liquidate]
 liquidate [id|all] [silent]
 stopall                   : liquidate every bot
 list
 load <file> [password=...]    : quick launch from a package
 restart <file> [password=...] : restart from a package with live balances, bypass mode
 log [n]
 dellog
 exit`

// Console: интерпретатор команд оператора; одинаков для stdin и websocket.
type Console struct {
	fleet       Fleet
	readPackage PackageReader
	password    string
	log         *zap.Logger

	tail   func(n int) ([]string, error)
	rotate func() error
}

func New(fleet Fleet, readPackage PackageReader, password string, log *zap.Logger) *Console {
	return &Console{
		fleet:       fleet,
		readPackage: readPackage,
		password:    password,
		log:         log,
		tail:        logger.Tail,
		rotate:      logger.Rotate,
	}
}

// Exec выполняет одну строку и возвращает текст ответа. ErrExit: команда exit.
func (c *Console) Exec(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	c.log.Info("console command", zap.String("cmd", cmd))

	switch cmd {
	case "help":
		return helpText, nil
	case "start":
		return c.start(ctx, args, false)
	case "startbypass":
		return c.start(ctx, args, true)
	case "pause":
		return c.each(args, "paused",
			func(id int64) error { return c.fleet.Pause(ctx, id) },
			func() int { return c.fleet.PauseAll(ctx) })
	case "resume":
		return c.each(args, "resumed",
			func(id int64) error { return c.fleet.Resume(ctx, id) },
			func() int { return c.fleet.ResumeAll(ctx) })
	case "kill":
		return c.kill(ctx, args)
	case "liquidate":
		silent := hasFlag(args, "silent")
		return c.each(args, "marked for liquidation",
			func(id int64) error { return c.fleet.Liquidate(id, silent) },
			func() int { return c.fleet.LiquidateAll(silent) })
	case "stopall":
		return fmt.Sprintf("emergency stop : liquidating %d bots", c.fleet.EmergencyStop(ctx)), nil
	case "list":
		return c.list(), nil
	case "load", "restart":
		return c.loadPackage(ctx, cmd, args)
	case "log":
		return c.showLog(args)
	case "dellog":
		if err := c.rotate(); err != nil {
			return "", err
		}
		return "log file rotated", nil
	case "exit", "quit":
		return "bye", ErrExit
	}
	return "", fmt.Errorf("unknown command %q, type help", cmd)
}

// Serve читает команды построчно, пока не придёт exit или не закончится ввод.
func (c *Console) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	fmt.Fprint(w, "@ : ")
	for sc.Scan() {
		out, err := c.Exec(ctx, sc.Text())
		if out != "" {
			fmt.Fprintln(w, out)
		}
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(w, "error:", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(w, "@ : ")
	}
	return sc.Err()
}

func (c *Console) start(ctx context.Context, args []string, bypass bool) (string, error) {
	p, err := parseParams(args)
	if err != nil {
		return "", err
	}
	p.Bypass = bypass

	id, err := c.fleet.Start(ctx, p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("bot %d started : %s on %s", id, p.Owner, p.Pair), nil
}

func (c *Console) each(args []string, verb string, one func(int64) error, all func() int) (string, error) {
	target, err := targetArg(args)
	if err != nil {
		return "", err
	}
	if target == 0 {
		return fmt.Sprintf("%d bots %s", all(), verb), nil
	}
	if err := one(target); err != nil {
		return "", err
	}
	return fmt.Sprintf("bot %d %s", target, verb), nil
}

func (c *Console) kill(ctx context.Context, args []string) (string, error) {
	target, err := targetArg(args)
	if err != nil {
		return "", err
	}
	silent := hasFlag(args, "silent")

	if !hasFlag(args, "liquidate") {
		if target == 0 {
			return fmt.Sprintf("%d bots killed", c.fleet.KillAll(ctx, silent)), nil
		}
		if err := c.fleet.Kill(ctx, target, silent); err != nil {
			return "", err
		}
		return fmt.Sprintf("bot %d killed", target), nil
	}

	ids := []int64{target}
	if target == 0 {
		ids = ids[:0]
		for _, s := range c.fleet.List() {
			ids = append(ids, s.ID)
		}
	}
	var lines []string
	for _, id := range ids {
		res, err := c.fleet.KillLiquidate(ctx, id, silent)
		switch {
		case err != nil:
			lines = append(lines, fmt.Sprintf("bot %d : %v", id, err))
		case !res.OK():
			lines = append(lines, fmt.Sprintf("bot %d killed, liquidation failed (%s) : %v", id, res.Kind, res.Err))
		default:
			lines = append(lines, fmt.Sprintf("bot %d liquidated and killed", id))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Console) list() string {
	bots := c.fleet.List()
	if len(bots) == 0 {
		return "no bots running"
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Owner", "Pair", "Status", "Chat ID", "Base", "Quote", "Started"})
	for _, b := range bots {
		t.AppendRow(table.Row{
			b.ID, b.Owner, b.Pair, b.Status, b.ChatID,
			strconv.FormatFloat(b.BaseQty, 'f', -1, 64),
			strconv.FormatFloat(b.QuoteQty, 'f', -1, 64),
			b.Started.Format("2006-01-02 15:04"),
		})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func (c *Console) loadPackage(ctx context.Context, cmd string, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: %s <file> [password=...]", cmd)
	}
	password := c.password
	bypass := false
	for _, a := range args[1:] {
		switch {
		case strings.HasPrefix(a, "password="):
			password = strings.TrimPrefix(a, "password=")
		case a == "bypass":
			bypass = true
		}
	}

	pkg, err := c.readPackage(args[0], password)
	if err != nil {
		return "", err
	}

	var ids []int64
	if cmd == "restart" {
		ids, err = c.fleet.Restart(ctx, pkg)
	} else {
		ids, err = c.fleet.Load(ctx, pkg, bypass)
	}
	out := fmt.Sprintf("%d of %d bots started %v", len(ids), len(pkg), ids)
	if err != nil {
		return out + "\n" + err.Error(), nil
	}
	return out, nil
}

func (c *Console) showLog(args []string) (string, error) {
	n := 50
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return "", fmt.Errorf("invalid line count %q", args[0])
		}
		n = v
	}
	lines, err := c.tail(n)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "log is empty", nil
	}
	return strings.Join(lines, "\n"), nil
}

// targetArg: 0 означает всех ботов.
func targetArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("which bot ? use an id or all")
	}
	if args[0] == "all" {
		return 0, nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bot id %q", args[0])
	}
	return id, nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
