package config

// DefaultValues is the default configuration of workerboot
const DefaultValues = `
[Log]
Level = "info"
ErrorsPath = ""

[HTTP]
Timeout = "30s"
UserAgent = "workerboot"
MaxScriptBytes = 10485760

[Worker]
AllowSchemes = ["http", "https", "file", "data"]
`
