package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters. Changing them only affects new hashes; Verify reads
// the parameters embedded in the stored string.
type params struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

var defaultParams = params{
	time:    3,
	memory:  64 * 1024,
	threads: 2,
	keyLen:  32,
	saltLen: 16,
}

var errInvalidHash = errors.New("invalid password hash")

// Hash returns an argon2id hash string carrying its parameters and salt.
func Hash(plain string) (string, error) {
	p := defaultParams
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.time,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks a plaintext password against an encoded argon2id hash in
// constant time. A malformed hash is an error, not a mismatch.
func Verify(plain, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errInvalidHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return false, errInvalidHash
	}

	p, err := parseParams(parts[3])
	if err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, errInvalidHash
	}

	got := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func parseParams(section string) (params, error) {
	var p params
	fields := strings.Split(section, ",")
	if len(fields) != 3 {
		return p, errInvalidHash
	}
	mem, err := parseField(fields[0], "m=")
	if err != nil {
		return p, err
	}
	cost, err := parseField(fields[1], "t=")
	if err != nil {
		return p, err
	}
	threads, err := parseField(fields[2], "p=")
	if err != nil || threads > 255 {
		return p, errInvalidHash
	}
	p.memory = mem
	p.time = cost
	p.threads = uint8(threads)
	return p, nil
}

func parseField(field, prefix string) (uint32, error) {
	if !strings.HasPrefix(field, prefix) {
		return 0, errInvalidHash
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(field, prefix), 10, 32)
	if err != nil {
		return 0, errInvalidHash
	}
	return uint32(n), nil
}
