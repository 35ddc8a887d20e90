package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana/shortvec"
)

// Marshal returns the wire encoding of the transaction: the compact length
// prefixed signatures followed by the message.
func (t Transaction) Marshal() []byte {
	var b bytes.Buffer

	writeLen(&b, len(t.Signatures))
	for _, s := range t.Signatures {
		b.Write(s[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := bytes.NewReader(b)

	sigLen, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read signature length")
	}

	t.Signatures = make([]Signature, sigLen)
	for i := range t.Signatures {
		if _, err := io.ReadFull(r, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature at %d", i)
		}
	}

	rest := make([]byte, r.Len())
	_, _ = r.Read(rest)
	return t.Message.Unmarshal(rest)
}

// Marshal returns the legacy wire encoding of the message.
func (m Message) Marshal() []byte {
	var b bytes.Buffer

	b.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	writeLen(&b, len(m.Accounts))
	for _, a := range m.Accounts {
		b.Write(a)
	}

	b.Write(m.RecentBlockhash[:])

	writeLen(&b, len(m.Instructions))
	for _, ix := range m.Instructions {
		b.WriteByte(ix.ProgramIndex)
		writeLen(&b, len(ix.Accounts))
		b.Write(ix.Accounts)
		writeLen(&b, len(ix.Data))
		b.Write(ix.Data)
	}

	return b.Bytes()
}

// Unmarshal decodes a legacy message. Versioned messages are rejected, as are
// instructions referencing accounts outside the message.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	// The high bit of the first byte marks a versioned message.
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := bytes.NewReader(b)

	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrap(err, "failed to read header")
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	accountLen, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read account len")
	}
	m.Accounts = make([]ed25519.PublicKey, accountLen)
	for i := range m.Accounts {
		if m.Accounts[i], err = readBytes(r, ed25519.PublicKeySize); err != nil {
			return errors.Wrapf(err, "failed to read account at index %d", i)
		}
	}

	if _, err := io.ReadFull(r, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent block hash")
	}

	instructionLen, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction len")
	}
	m.Instructions = make([]CompiledInstruction, instructionLen)
	for i := range m.Instructions {
		if m.Instructions[i], err = readInstruction(r, len(m.Accounts)); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d]", i)
		}
	}

	return nil
}

func readInstruction(r *bytes.Reader, numAccounts int) (ix CompiledInstruction, err error) {
	if ix.ProgramIndex, err = r.ReadByte(); err != nil {
		return ix, errors.Wrap(err, "failed to read program index")
	}
	if int(ix.ProgramIndex) >= numAccounts {
		return ix, errors.Errorf("program index out of range: %d", ix.ProgramIndex)
	}

	if ix.Accounts, err = readLenPrefixed(r); err != nil {
		return ix, errors.Wrap(err, "failed to read accounts")
	}
	for _, index := range ix.Accounts {
		if int(index) >= numAccounts {
			return ix, errors.Errorf("account index out of range: %d", index)
		}
	}

	if ix.Data, err = readLenPrefixed(r); err != nil {
		return ix, errors.Wrap(err, "failed to read data")
	}
	return ix, nil
}

func writeLen(b *bytes.Buffer, length int) {
	// Writes to a bytes.Buffer can't fail, and lengths are bounded by the
	// transaction size.
	_, _ = shortvec.EncodeLen(b, length)
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	length, err := shortvec.DecodeLen(r)
	if err != nil {
		return nil, err
	}
	return readBytes(r, length)
}

func readBytes(r *bytes.Reader, n int) ([]byte, error) {
	if n > r.Len() {
		return nil, io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	_, err := io.ReadFull(r, b)
	return b, err
}
