package patients

import (
	"crypto/rand"
	"strings"
)

// Charset sin caracteres ambiguos (0/O, 1/I/L) para tokens que se
// dictan por teléfono entre farmacias y clínicas.
const tokenCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewShareToken genera un token PAT-XXXX-XXXX-XXXX.
// La unicidad garantizada es por organización (namespace del paciente),
// no global; con este espacio las colisiones son irrelevantes en la práctica.
func NewShareToken() string {
	var b strings.Builder
	b.WriteString("PAT")
	for g := 0; g < 3; g++ {
		b.WriteByte('-')
		b.WriteString(randomGroup(4))
	}
	return b.String()
}

func randomGroup(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = tokenCharset[int(buf[i])%len(tokenCharset)]
	}
	return string(buf)
}
