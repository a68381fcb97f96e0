// nestadmin はゲームサーバー管理画面のAPIサーバー。
//
// 使い方:
//
//	nestadmin [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/nestadmin/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nestadmin: %v\n", err)
		os.Exit(1)
	}
}
