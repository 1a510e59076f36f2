package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/certhub/session-gateway/internal/business"
	"github.com/certhub/session-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Session Gateway API server",
		"Session Gateway API server hosts the public login, accept, logout, and whoami endpoints.",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
