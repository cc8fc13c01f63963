package config

import "strings"

type EnvVars struct {
	v Values
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetEnv() string {
	if e.v.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.v.Env)
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

func (e EnvVars) GetAppName() string {
	return e.v.AppName
}

func (e EnvVars) GetLogLevel() string {
	return e.v.LogLevel
}

func (e EnvVars) GetLogFormat() string {
	return e.v.LogFormat
}
