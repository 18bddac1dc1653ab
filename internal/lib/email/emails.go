package email

// SendWelcomeEmail sends a welcome email to a newly registered user.
func (c *Client) SendWelcomeEmail(to, userName string) error {
	data := map[string]string{
		"UserName": userName,
	}

	return c.SendEmail(
		to,
		"Welcome to the COVID statistics API",
		TemplateWelcome,
		data,
	)
}
