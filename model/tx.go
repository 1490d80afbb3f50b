package model

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/errors"
)

// Output is a value locked to a public key.
type Output struct {
	Value     float64
	PublicKey *bec.PublicKey
}

// Clone returns a copy of the output. The public key is immutable and shared.
func (o *Output) Clone() *Output {
	if o == nil {
		return nil
	}

	return &Output{Value: o.Value, PublicKey: o.PublicKey}
}

// Input spends the output PreviousTxOutIndex of PreviousTxID. Signature is the DER
// encoded signature over the SignableBytes of the spending transaction for this input.
type Input struct {
	PreviousTxID       chainhash.Hash
	PreviousTxOutIndex uint32
	Signature          []byte
}

func (i *Input) Outpoint() Outpoint {
	return Outpoint{TxID: i.PreviousTxID, Index: i.PreviousTxOutIndex}
}

type Tx struct {
	Inputs  []*Input
	Outputs []*Output
}

func NewTx() *Tx {
	return &Tx{
		Inputs:  make([]*Input, 0),
		Outputs: make([]*Output, 0),
	}
}

func (tx *Tx) AddInput(previousTxID chainhash.Hash, index uint32) {
	tx.Inputs = append(tx.Inputs, &Input{
		PreviousTxID:       previousTxID,
		PreviousTxOutIndex: index,
	})
}

func (tx *Tx) AddOutput(value float64, publicKey *bec.PublicKey) {
	tx.Outputs = append(tx.Outputs, &Output{
		Value:     value,
		PublicKey: publicKey,
	})
}

// Bytes returns the serialized transaction, signatures included.
func (tx *Tx) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 128))

	buf.Write(bt.VarInt(uint64(len(tx.Inputs))).Bytes())

	for _, input := range tx.Inputs {
		if input == nil {
			buf.Write(make([]byte, chainhash.HashSize+4))
			buf.Write(bt.VarInt(0).Bytes())

			continue
		}

		buf.Write(input.Outpoint().Bytes())
		buf.Write(bt.VarInt(uint64(len(input.Signature))).Bytes())
		buf.Write(input.Signature)
	}

	writeOutputs(buf, tx.Outputs)

	return buf.Bytes()
}

// SignableBytes returns the message that the signature of input index signs: the
// outpoint that input spends followed by every output of the transaction.
func (tx *Tx) SignableBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(tx.Inputs) {
		return nil, errors.NewTxInvalidError("input index %d out of range, tx has %d inputs", index, len(tx.Inputs))
	}

	input := tx.Inputs[index]
	if input == nil {
		return nil, errors.NewTxInvalidError("input %d is nil", index)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 128))
	buf.Write(input.Outpoint().Bytes())

	writeOutputs(buf, tx.Outputs)

	return buf.Bytes(), nil
}

func writeOutputs(buf *bytes.Buffer, outputs []*Output) {
	buf.Write(bt.VarInt(uint64(len(outputs))).Bytes())

	value := make([]byte, 8)

	for _, output := range outputs {
		if output == nil {
			buf.Write(make([]byte, 8))
			buf.Write(bt.VarInt(0).Bytes())

			continue
		}

		binary.LittleEndian.PutUint64(value, math.Float64bits(output.Value))
		buf.Write(value)

		if output.PublicKey == nil {
			buf.Write(bt.VarInt(0).Bytes())
			continue
		}

		pubKey := output.PublicKey.Compressed()
		buf.Write(bt.VarInt(uint64(len(pubKey))).Bytes())
		buf.Write(pubKey)
	}
}

// TxIDChainHash is the double sha256 of the serialized transaction.
func (tx *Tx) TxIDChainHash() *chainhash.Hash {
	hash := chainhash.DoubleHashH(tx.Bytes())
	return &hash
}

func (tx *Tx) TxID() string {
	return tx.TxIDChainHash().String()
}

// Sign signs input index with privateKey and stores the DER signature on the input.
func (tx *Tx) Sign(index int, privateKey *bec.PrivateKey) error {
	message, err := tx.SignableBytes(index)
	if err != nil {
		return err
	}

	signature, err := privateKey.Sign(chainhash.HashB(message))
	if err != nil {
		return errors.NewProcessingError("failed to sign input %d", index, err)
	}

	tx.Inputs[index].Signature = signature.Serialize()

	return nil
}

// InputOutpoints returns the outpoints spent by the transaction, in input order.
func (tx *Tx) InputOutpoints() []Outpoint {
	outpoints := make([]Outpoint, 0, len(tx.Inputs))

	for _, input := range tx.Inputs {
		if input != nil {
			outpoints = append(outpoints, input.Outpoint())
		}
	}

	return outpoints
}

func (tx *Tx) TotalOutputValue() float64 {
	total := 0.0

	for _, output := range tx.Outputs {
		if output != nil {
			total += output.Value
		}
	}

	return total
}

// Clone returns a copy that shares only the immutable public keys.
func (tx *Tx) Clone() *Tx {
	clone := &Tx{
		Inputs:  make([]*Input, 0, len(tx.Inputs)),
		Outputs: make([]*Output, 0, len(tx.Outputs)),
	}

	for _, input := range tx.Inputs {
		if input == nil {
			clone.Inputs = append(clone.Inputs, nil)
			continue
		}

		clone.Inputs = append(clone.Inputs, &Input{
			PreviousTxID:       input.PreviousTxID,
			PreviousTxOutIndex: input.PreviousTxOutIndex,
			Signature:          append([]byte(nil), input.Signature...),
		})
	}

	for _, output := range tx.Outputs {
		if output == nil {
			clone.Outputs = append(clone.Outputs, nil)
			continue
		}

		clone.Outputs = append(clone.Outputs, output.Clone())
	}

	return clone
}
