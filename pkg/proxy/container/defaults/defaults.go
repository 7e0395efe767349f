package defaults

const (
	// common defaults
	ContainerName  string = "oauth2-proxy"
	Image          string = "quay.io/oauth2-proxy/oauth2-proxy:v7.6.0"
	ListenPort     int32  = 4180
	PortName       string = "oauth2-proxy"
	ConfigBasePath string = "/etc/oauth2-proxy"
	ConfigFileName string = "oauth2-proxy.cfg"
	ConfigVolume   string = "oauth2-proxy-config"
	ConfigMap      string = "oauth2-proxy-config"

	// keys expected in the credentials Secret. The values are only ever
	// dereferenced inside the sidecar container through SecretKeyRef env
	// bindings, never by this tool.
	ClientIDKey     string = "client-id"
	ClientSecretKey string = "client-secret"
	CookieSecretKey string = "cookie-secret"

	// env var names understood by the oauth2-proxy binary
	EnvHTTPAddress  string = "OAUTH2_PROXY_HTTP_ADDRESS"
	EnvUpstreams    string = "OAUTH2_PROXY_UPSTREAMS"
	EnvClientID     string = "OAUTH2_PROXY_CLIENT_ID"
	EnvClientSecret string = "OAUTH2_PROXY_CLIENT_SECRET"
	EnvCookieSecret string = "OAUTH2_PROXY_COOKIE_SECRET"

	ReadinessProbePath                string = "/ping"
	ReadinessProbeInitialDelaySeconds int32  = 5
	ReadinessProbeTimeoutSeconds      int32  = 1
	ReadinessProbePeriodSeconds       int32  = 5
	ReadinessProbeSuccessThreshold    int32  = 1
	ReadinessProbeFailureThreshold    int32  = 3
)
