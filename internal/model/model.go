// Package model holds the domain types shared by the repository, service
// and handler layers: users, observations and the year-week period id.
package model
