package listing

// Operand shapes the assembler understands.
type operandKind int

const (
	opNone operandKind = iota // no operand
	opInt                     // one signed 32-bit operand
	opJump                    // label or absolute offset
)

type opInfo struct {
	op   byte
	typ  byte
	kind operandKind
}

// mnemonics is the instruction subset the reference core speaks. Opcode and
// type-qualifier bytes follow the NCS layout for the instructions covered.
var mnemonics = map[string]opInfo{
	"CPDOWNSP": {0x01, 0x01, opInt},
	"RSADDI":   {0x02, 0x03, opNone},
	"RSADDF":   {0x02, 0x04, opNone},
	"RSADDS":   {0x02, 0x05, opNone},
	"CPTOPSP":  {0x03, 0x01, opInt},
	"CONSTI":   {0x04, 0x03, opInt},
	"LOGANDII": {0x06, 0x20, opNone},
	"LOGORII":  {0x07, 0x20, opNone},
	"EQUALII":  {0x0A, 0x20, opNone},
	"ADDII":    {0x0B, 0x20, opNone},
	"SUBII":    {0x0C, 0x20, opNone},
	"MULII":    {0x0D, 0x20, opNone},
	"DIVII":    {0x0E, 0x20, opNone},
	"NEGI":     {0x19, 0x03, opNone},
	"MOVSP":    {0x1B, 0x00, opInt},
	"JMP":      {0x1D, 0x00, opJump},
	"JSR":      {0x1E, 0x00, opJump},
	"JZ":       {0x1F, 0x00, opJump},
	"RETN":     {0x20, 0x00, opNone},
	"JNZ":      {0x25, 0x00, opJump},
	"NOP":      {0x2D, 0x00, opNone},
}

// byEncoding indexes mnemonics by their opcode and type bytes, for
// decompilation.
var byEncoding map[[2]byte]string

func init() {
	byEncoding = make(map[[2]byte]string, len(mnemonics))
	for name, info := range mnemonics {
		byEncoding[[2]byte{info.op, info.typ}] = name
	}
}
