// Package textutil provides small text helpers shared across the client.
package textutil
