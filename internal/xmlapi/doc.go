// Package xmlapi implements a client for the CCU XML-API addon
// (https://<ccu>/addons/xmlapi/), the HTTP alternative to the XML-RPC
// interface daemon.
//
// The addon serves the CCU state as XML documents — statelist.cgi,
// devicelist.cgi, roomlist.cgi and functionlist.cgi — authenticated with a
// pre-provisioned session id passed as the sid query parameter. The addon
// emits ISO-8859-1 encoded XML, which encoding/xml only accepts through a
// CharsetReader; golang.org/x/text/encoding/charmap provides the decoder.
package xmlapi
