// Package ccu implements the client side of the two CCU (Homematic central
// control unit) APIs used by the legacy collector:
//
//   - the XML-RPC interface daemon (port 2001 for BidCos-RF, 2010 for HmIP)
//     for listDevices / getParamset / getParamsetDescription, via
//     github.com/kolo/xmlrpc with optional HTTP basic auth
//   - the JSON-RPC API on the CCU web server (/api/homematic.cgi) for
//     resolving device addresses to the display names configured in the
//     WebUI (Session.login / Device.listAllDetail / Session.logout)
//
// XML-RPC faults are converted into the package's Fault type so callers
// can distinguish a channel that legitimately refuses a paramset read from
// a transport failure.
package ccu
