package amm

import (
	"bytes"
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

type encodable interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

type decodable interface {
	UnmarshalWithDecoder(decoder *bin.Decoder) error
}

func marshal(v encodable) []byte {
	var buf bytes.Buffer
	if err := v.MarshalWithEncoder(bin.NewBinEncoder(&buf)); err != nil {
		// Writes to an in-memory buffer cannot fail
		panic(err)
	}
	return buf.Bytes()
}

// unmarshal decodes v from data, which must be consumed entirely
func unmarshal(v decodable, data []byte) error {
	decoder := bin.NewBinDecoder(data)
	if err := v.UnmarshalWithDecoder(decoder); err != nil {
		return errors.Wrap(ErrMalformedInput, err.Error())
	}
	if decoder.Remaining() > 0 {
		return errors.Wrapf(ErrMalformedInput, "%d trailing bytes", decoder.Remaining())
	}
	return nil
}

func readKey(decoder *bin.Decoder) (ed25519.PublicKey, error) {
	b, err := decoder.ReadBytes(ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}

	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, b)
	return key, nil
}

// fixedKey returns key as exactly 32 bytes
func fixedKey(key ed25519.PublicKey) []byte {
	b := make([]byte, ed25519.PublicKeySize)
	copy(b, key)
	return b
}

func instructionData(instructionType InstructionType, args []byte) []byte {
	data := make([]byte, 1+len(args))
	data[0] = uint8(instructionType)
	copy(data[1:], args)
	return data
}
