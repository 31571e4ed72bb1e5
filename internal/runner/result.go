package runner

import "errors"

type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultRecoverable
	ResultFatal
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultRecoverable:
		return "recoverable"
	default:
		return "fatal"
	}
}

// Result: итог фазы цикла. Recoverable логируется и цикл идёт дальше,
// Fatal ставит бота на паузу до решения оператора.
type Result struct {
	Kind  ResultKind
	Phase string
	Err   error
}

func (r Result) OK() bool { return r.Kind == ResultOK }

func okResult() Result { return Result{Kind: ResultOK} }

type fataler interface {
	Fatal() bool
}

func failed(phase string, err error) Result {
	kind := ResultRecoverable
	var f fataler
	if errors.As(err, &f) && f.Fatal() {
		kind = ResultFatal
	}
	return Result{Kind: kind, Phase: phase, Err: err}
}
