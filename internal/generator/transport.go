package generator

import "encoding/base64"

func encodeAudioForTransport(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func decodeAudioFromTransport(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
