// Package serial provides the line-oriented transport to a Wi-SUN module.
//
// SKSTACK firmware talks in CRLF-terminated ASCII lines, with one binary
// exception: the payload of an SKSENDTO command follows the ASCII header on
// the same line as raw bytes. Conn therefore exposes both WriteLine and a
// raw Write next to a blocking ReadLine.
package serial
