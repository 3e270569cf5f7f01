package config

const SourceFileExt = ".cas"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".cas", ".cascade"}

// DecimalDigits is the maximum number of fractional digits used when a
// Number is rendered as text. Trailing zeros are trimmed.
const DecimalDigits = 34

// DefaultCallTimeout (seconds) is zero, meaning no limit. Executable.Call
// does not read it; a call is bounded only by the deadline of the context
// it is given.
const DefaultCallTimeout = 0

// ManifestFileName is the default program manifest looked up by the CLI.
const ManifestFileName = "cascade.yaml"
