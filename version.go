package dialogtree

// Version is the library version, overridable at build time via
// -ldflags "-X github.com/maxbot-ai/dialogtree.Version=...".
var Version = "0.1.0"
