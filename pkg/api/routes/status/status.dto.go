package status

type StatusResponse struct {
	Status        string  `json:"status"`
	Time          string  `json:"time"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
