// Package collector implements the two prometheus.Collector variants of
// the exporter.
//
// Legacy scrapes the CCU interface daemon over XML-RPC: it walks the
// device tree on every scrape, reads each supported channel's VALUES
// paramset and turns the parameters into homematic_* gauges named after
// the parameter. The metric families are therefore not known up front,
// which makes Legacy an unchecked collector (Describe sends nothing).
//
// XMLAPI scrapes the XML-API addon instead: the statelist document carries
// every current value in one request, and only well-known datapoint types
// are mapped, onto fixed unit-suffixed families.
//
// Both collectors emit homematic_up{ccu} so dashboards and alerts can
// distinguish an unreachable CCU from a healthy one with no devices, and
// both cache their name/topology lookups with patrickmn/go-cache.
package collector
