package settings

import "fmt"

const CmdName = "pyperf"

var (
	PidFile             = fmt.Sprintf("/tmp/%s.pid", CmdName)
	LogFile             = fmt.Sprintf("/tmp/%s.log", CmdName)
	HealthCheckSockPath = fmt.Sprintf("/tmp/%s.sock", CmdName)
	ConfigFile          = fmt.Sprintf("~/.config/%s/config.yaml", CmdName)
	WorkspaceDir        = fmt.Sprintf("~/.%s/sessions", CmdName)
)
