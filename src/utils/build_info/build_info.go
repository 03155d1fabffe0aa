package build_info

// Set at build time with -ldflags
var (
	Version   = "dev"
	BuildDate = ""
)
