//go:build dev

package config

// devBuildAllowsRandomRollback is true only in binaries built with
// `-tags dev`, gating spec.md §9's random-rollback self-test out of
// every production build.
const devBuildAllowsRandomRollback = true
