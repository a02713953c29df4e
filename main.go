package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"

	"camwatch/internal/app"
	"camwatch/internal/config"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("設定の読み込みに失敗しました")
	}

	// アプリケーションを作成
	a, err := app.New(cfg, nil, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("アプリケーションの作成に失敗しました")
	}

	// 割り込みまでキャプチャを実行
	a.Start(context.Background())
}
