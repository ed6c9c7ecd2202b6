package mcpserver

// ContactsStatusInput is the input for the contacts_status MCP tool. It takes
// no arguments.
type ContactsStatusInput struct{}
