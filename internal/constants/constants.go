// Package constants provides application-wide constants.
package constants

// Version is the application version
const Version = "1.2"
