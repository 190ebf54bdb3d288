// Package byteplus generates scene clips with BytePlus ModelArk Seedance
// models. Each clip is an asynchronous content-generation task that is
// created, polled until it settles, then downloaded from its video URL.
package byteplus
