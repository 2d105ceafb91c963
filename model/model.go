package model

// Raw canvas pixels posted by the drawing UI. Data is RGBA, 4 bytes per
// pixel, row-major, and travels base64 encoded in JSON.
type PrintingRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

type TextRequest struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type ConnectResponse struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type DeviceInfoResponse struct {
	Connected       bool   `json:"connected"`
	State           string `json:"state"`
	Name            string `json:"name,omitempty"`
	Model           string `json:"model,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	BatteryLevel    int    `json:"batteryLevel"`
	PaperLoaded     bool   `json:"paperLoaded"`
}

type PrintJobResponse struct {
	ID         string `json:"id"`
	Device     string `json:"device"`
	Model      string `json:"model"`
	Rows       int    `json:"rows"`
	Frames     int    `json:"frames"`
	Bytes      int    `json:"bytes"`
	PrintedAt  string `json:"printedAt"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}
