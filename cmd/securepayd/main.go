package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"securepay/internal/config"
	httpinfra "securepay/internal/infra/http"
	"securepay/internal/infra/keys"
)

func main() {
	cfg := config.FromEnv()
	log := newLogger(cfg.LogLevel)

	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	keySet, err := keys.LoadFromConfig(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to load key material")
	}
	if missing := keySet.Missing(); len(missing) > 0 {
		log.WithField("missing", strings.Join(missing, ",")).
			Warn("key material incomplete; affected operations will report a configuration error")
	}

	srv := httpinfra.NewServer(cfg, keySet, log)
	if err := srv.Run(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
