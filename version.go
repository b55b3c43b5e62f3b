package quadrat

// Version is the library version. Release builds override it via
// -ldflags "-X github.com/aretw0/quadrat.Version=v1.2.3".
var Version = "0.1.0-dev"
