package globals

import "github.com/hashicorp/go-hclog"

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "spinner-app",
	Level: hclog.LevelFromString("INFO"),
})
