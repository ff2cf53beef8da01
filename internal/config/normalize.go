package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.PrefsPath, err = expandPath(c.Paths.PrefsPath); err != nil {
		return err
	}

	c.Traffic.BaseURL = strings.TrimRight(strings.TrimSpace(c.Traffic.BaseURL), "/")
	c.Traffic.APIToken = strings.TrimSpace(c.Traffic.APIToken)
	if token := strings.TrimSpace(os.Getenv("AIRTRACK_API_TOKEN")); token != "" {
		c.Traffic.APIToken = token
	}
	if c.Traffic.RequestTimeout <= 0 {
		c.Traffic.RequestTimeout = defaultTrafficTimeout
	}

	c.Collaboration.URL = strings.TrimSpace(c.Collaboration.URL)
	c.Collaboration.Username = strings.TrimSpace(c.Collaboration.Username)
	c.Collaboration.DocumentID = strings.TrimSpace(c.Collaboration.DocumentID)
	if c.Collaboration.PingInterval <= 0 {
		c.Collaboration.PingInterval = defaultPingInterval
	}
	if c.Collaboration.ReconnectBaseSeconds <= 0 {
		c.Collaboration.ReconnectBaseSeconds = defaultReconnectBaseSeconds
	}
	if c.Collaboration.ReconnectMaxSeconds <= 0 {
		c.Collaboration.ReconnectMaxSeconds = defaultReconnectMaxSeconds
	}
	if c.Collaboration.ReconnectAttempts <= 0 {
		c.Collaboration.ReconnectAttempts = defaultReconnectAttempts
	}

	c.Capture.Binary = strings.TrimSpace(c.Capture.Binary)
	if c.Capture.Binary == "" {
		c.Capture.Binary = defaultCaptureBinary
	}
	c.Capture.Device = strings.TrimSpace(c.Capture.Device)
	if c.Capture.SampleRate <= 0 {
		c.Capture.SampleRate = defaultSampleRate
	}
	if c.Capture.Channels <= 0 {
		c.Capture.Channels = defaultChannels
	}
	if c.Capture.ChunkMillis <= 0 {
		c.Capture.ChunkMillis = defaultChunkMillis
	}
	if c.Capture.MinFreeBytes <= 0 {
		c.Capture.MinFreeBytes = defaultMinFreeBytes
	}

	if c.Workflow.UploadPollInterval <= 0 {
		c.Workflow.UploadPollInterval = defaultUploadPollInterval
	}
	if c.Workflow.UploadRetryInterval <= 0 {
		c.Workflow.UploadRetryInterval = defaultUploadRetryInterval
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
