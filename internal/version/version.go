package version

const (
	AppName = "Jukebox"
	Version = "0.1.0"
)
