// Package errors defines the failures ampyfm shows to the user: an
// unreachable board, a failed ampy call, an unusable selection, plus the
// file and configuration errors of the host side.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-exported so callers need a single errors import
var (
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// DefaultErrorMarker is the substring ampy prints in front of the
// human-readable part of a failure.
const DefaultErrorMarker = "RuntimeError:"

// ErrNoSelection is logged as a warning when an action has nothing to act on.
var ErrNoSelection = NewSelectionError("No file selected")

// ErrorKind classifies an ApplicationError
type ErrorKind int

const (
	Unknown ErrorKind = iota
	FileNotFound
	FileAccessDenied
	InvalidPath
	InvalidConfig
	DeviceNotFound
	ToolFailed
	ToolMissing
	InvalidSelection
)

var kindNames = map[ErrorKind]string{
	Unknown:          "unknown",
	FileNotFound:     "file_not_found",
	FileAccessDenied: "file_access_denied",
	InvalidPath:      "invalid_path",
	InvalidConfig:    "invalid_config",
	DeviceNotFound:   "device_not_found",
	ToolFailed:       "tool_failed",
	ToolMissing:      "tool_missing",
	InvalidSelection: "invalid_selection",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ApplicationError carries a message, the subject it is about (a path, a
// config key) and an optional cause. The typed errors below embed it.
type ApplicationError struct {
	kind    ErrorKind
	msg     string
	subject string
	err     error
}

func (e *ApplicationError) Error() string {
	var b strings.Builder
	b.WriteString(e.msg)
	if e.subject != "" {
		b.WriteString(": ")
		b.WriteString(e.subject)
	}
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

func (e *ApplicationError) Unwrap() error { return e.err }

// Kind reports the error's classification
func (e *ApplicationError) Kind() ErrorKind { return e.kind }

// FileError is a host filesystem failure
type FileError struct {
	ApplicationError
}

// NewFileError reports msg about path
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{ApplicationError{kind: kind, msg: msg, subject: path, err: err}}
}

// Path is the file the error is about
func (e *FileError) Path() string { return e.subject }

// ConfigError is an unusable configuration value or file
type ConfigError struct {
	ApplicationError
}

// NewConfigError reports msg about the config key or file param
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{ApplicationError{kind: kind, msg: msg, subject: param, err: err}}
}

// Param is the config key or file the error is about
func (e *ConfigError) Param() string { return e.subject }

// DeviceError means the board's serial port could not be opened.
type DeviceError struct {
	ApplicationError
	port string
}

// NewDeviceError reports that port could not be opened
func NewDeviceError(port string, err error) *DeviceError {
	msg := "can't find remote device"
	if port != "" {
		msg = fmt.Sprintf("%s '%s'", msg, port)
	}
	return &DeviceError{
		ApplicationError: ApplicationError{kind: DeviceNotFound, msg: msg, err: err},
		port:             port,
	}
}

// Port is the serial port that failed to open
func (e *DeviceError) Port() string { return e.port }

// ToolError is a non-zero exit of ampy. Message() is what the user sees.
type ToolError struct {
	ApplicationError
	subcommand string
	exitCode   int
	stderr     string
	marker     string
}

// NewToolError records a failed ampy subcommand
func NewToolError(subcommand string, exitCode int, stderr, marker string) *ToolError {
	return &ToolError{
		ApplicationError: ApplicationError{
			kind: ToolFailed,
			msg:  fmt.Sprintf("ampy %s failed (exit %d)", subcommand, exitCode),
		},
		subcommand: subcommand,
		exitCode:   exitCode,
		stderr:     stderr,
		marker:     marker,
	}
}

func (e *ToolError) Error() string {
	if msg := e.Message(); msg != "" {
		return e.msg + ": " + msg
	}
	return e.msg
}

// Message is stderr from the error marker onward, or all of the trimmed
// stderr when the marker does not occur.
func (e *ToolError) Message() string {
	return ExtractMessage(e.stderr, e.marker)
}

func (e *ToolError) Subcommand() string { return e.subcommand }
func (e *ToolError) ExitCode() int      { return e.exitCode }
func (e *ToolError) Stderr() string     { return e.stderr }

// ExtractMessage cuts stderr at marker. Without a match the trimmed stderr is
// returned.
func ExtractMessage(stderr, marker string) string {
	if marker != "" {
		if idx := strings.Index(stderr, marker); idx >= 0 {
			stderr = stderr[idx:]
		}
	}
	return strings.TrimSpace(stderr)
}

// SelectionError is an action invoked with an empty or unsuitable
// selection. No device command is issued for it.
type SelectionError struct {
	ApplicationError
}

func NewSelectionError(msg string) *SelectionError {
	return &SelectionError{ApplicationError{kind: InvalidSelection, msg: msg}}
}

// New returns an unclassified error
func New(msg string) error {
	return &ApplicationError{msg: msg}
}

func Newf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}

// Wrap adds msg in front of err. A nil err stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: msg, err: err}
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var k interface{ Kind() ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return Unknown
}

func IsFileNotFound(err error) bool {
	var fe *FileError
	return errors.As(err, &fe) && fe.kind == FileNotFound
}

func IsInvalidConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.kind == InvalidConfig
}

func IsDeviceNotFound(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

func IsToolFailed(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}

func IsInvalidSelection(err error) bool {
	var se *SelectionError
	return errors.As(err, &se)
}
