package email

// PreviewData holds sample template data, keyed by template then variable.
// Tests render every template with it to catch missing variables.
var PreviewData = map[Template]map[string]string{
	TemplateWelcome: {
		"UserName": "Jane Doe",
	},
}
