package dto

type PluginInfo struct {
	Name         string
	Version      string
	Enabled      bool
	Binary       string
	Capabilities []string
}

type DoctorResult struct {
	Name            string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Error           string
}

type ParameterInfo struct {
	Name        string
	PrettyName  string
	Type        string
	Default     string
	Array       bool
	Description string
}

type DescribeOutput struct {
	PluginName string
	Name       string
	Version    string
	Parameters []ParameterInfo
}

type SimulateInput struct {
	PluginName string
	TrialJSON  string
	Mode       string
	RT         *float64
	Key        *string
}

type SimulateOutput struct {
	PluginName string
	Data       map[string]string
}
