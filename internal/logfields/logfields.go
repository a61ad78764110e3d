package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDeploymentID = "deployment_id"
	KeyTag          = "tag"
	KeyPreviousTag  = "previous_tag"
	KeyRepo         = "repository"
	KeyService      = "service"
	KeyStep         = "step"
	KeyStage        = "stage"
	KeyCommand      = "command"
	KeyDir          = "dir"
	KeyProgress     = "progress"
	KeyOutcome      = "outcome"
	KeyCommit       = "commit"
	KeyPath         = "path"
	KeyMethod       = "method"
	KeyStatus       = "status"
	KeyDuration     = "duration"
	KeyUserAgent    = "user_agent"
	KeyRemoteAddr   = "remote_addr"
	KeyPort         = "port"
	KeyURL          = "url"
	KeyStderr       = "stderr"
	KeyJobName      = "job_name"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func DeploymentID(id string) slog.Attr    { return slog.String(KeyDeploymentID, id) }
func Tag(t string) slog.Attr              { return slog.String(KeyTag, t) }
func PreviousTag(t string) slog.Attr      { return slog.String(KeyPreviousTag, t) }
func Repository(r string) slog.Attr       { return slog.String(KeyRepo, r) }
func Service(s string) slog.Attr          { return slog.String(KeyService, s) }
func Step(name string) slog.Attr          { return slog.String(KeyStep, name) }
func Stage(name string) slog.Attr         { return slog.String(KeyStage, name) }
func Command(c string) slog.Attr          { return slog.String(KeyCommand, c) }
func Dir(d string) slog.Attr              { return slog.String(KeyDir, d) }
func Progress(p int) slog.Attr            { return slog.Int(KeyProgress, p) }
func Outcome(o string) slog.Attr          { return slog.String(KeyOutcome, o) }
func Commit(c string) slog.Attr           { return slog.String(KeyCommit, c) }
func Path(p string) slog.Attr             { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr           { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr           { return slog.Int(KeyStatus, code) }
func Duration(d time.Duration) slog.Attr  { return slog.Duration(KeyDuration, d) }
func UserAgent(ua string) slog.Attr       { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr    { return slog.String(KeyRemoteAddr, addr) }
func Port(p int) slog.Attr                { return slog.Int(KeyPort, p) }
func URL(u string) slog.Attr              { return slog.String(KeyURL, u) }
func Stderr(s string) slog.Attr           { return slog.String(KeyStderr, s) }
func JobName(n string) slog.Attr          { return slog.String(KeyJobName, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
