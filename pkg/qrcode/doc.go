// Package qrcode renders short codes as PNG QR images, bounded in size, and
// encodes them as data URIs for clients that embed the image inline.
package qrcode
