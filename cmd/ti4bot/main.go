package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/korveth/ti4bot/bot"
	"github.com/korveth/ti4bot/core/buildinfo"
	corecmd "github.com/korveth/ti4bot/core/cmd"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("ti4bot %s (%s %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		return
	}

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "TI4BOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return cfg.(*bot.App).Bootstrap()
		},
	})
	if err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}
