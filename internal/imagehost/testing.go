package imagehost

// SetTestBaseURL overrides the API base URL on a client for testing.
// This should only be used in tests.
func SetTestBaseURL(c *Client, baseURL string) {
	if baseURL != "" {
		c.baseURL = baseURL
	}
}
