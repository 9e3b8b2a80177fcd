package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ProviderCallback = (*CallbackService)(nil)
	_ TokenConfirmer   = (*TokenService)(nil)
	_ TokenRevoker     = (*TokenService)(nil)
	_ TokenCreator     = (*TokenService)(nil)
	_ TokenStore       = (*MemoryTokenStore)(nil)
	_ RawConfigLoader  = EnvConfigLoader{}
	_ ConfigProvider   = (*CfgxConfigProvider)(nil)
	_ OptionsResolver  = GoOptionsResolver{}
	_ MetricsRecorder  = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
