// Package domain holds the User entity, its validation rules and the domain
// errors shared by the service and store layers.
package domain
