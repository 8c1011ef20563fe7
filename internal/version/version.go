// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Parans, GeoJSON export, interactive map, Prometheus/OTel hooks
// 0.2.0 - Static snapshots and JPL Horizons planets, fixed-star catalog
// 0.1.0 - Initial release: AC/DC/MC/IC lines for the Sun and lunar nodes
