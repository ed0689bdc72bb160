package main

import (
	"github.com/joeydtaylor/steeze-rpc/pkg/serverfx"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		serverfx.Module(serverfx.DefaultOptions()),
		fx.Invoke(registerProcedures),
	).Run()
}
