package fancy

import (
	"fmt"

	"github.com/kyokomi/emoji/v2"
	"github.com/logrusorgru/aurora"
)

var (
	Info  = aurora.White
	Warn  = aurora.Yellow
	Error = aurora.Red
	Good  = aurora.Green
)

type Level = func(arg any) aurora.Value

func Println(level Level, args ...any) {
	fmt.Println(level(fmt.Sprint(args...)))
}

func Printf(level Level, format string, args ...any) {
	fmt.Print(level(fmt.Sprintf(format, args...)))
}

func Infoln(args ...any) {
	Println(Info, args...)
}

func Infof(format string, args ...any) {
	Printf(Info, format, args...)
}

func Warnf(format string, args ...any) {
	Printf(Warn, format, args...)
}

func Errorf(format string, args ...any) {
	Printf(Error, format, args...)
}

// Headlinef prints a bold section headline. The format may carry emoji
// aliases like :fuelpump:.
func Headlinef(format string, args ...any) {
	fmt.Println(aurora.Bold(emoji.Sprintf(format, args...)))
}
