package bytecode

// OpcodeSpec describes a JVM opcode. Length is the full encoded size,
// 0 for variable-length opcodes.
type OpcodeSpec struct {
	Name   string
	Length int
}

var opcodeTable = [256]OpcodeSpec{
	NOP:             {"nop", 1},
	ACONST_NULL:     {"aconst_null", 1},
	ICONST_M1:       {"iconst_m1", 1},
	ICONST_0:        {"iconst_0", 1},
	ICONST_1:        {"iconst_1", 1},
	ICONST_2:        {"iconst_2", 1},
	ICONST_3:        {"iconst_3", 1},
	ICONST_4:        {"iconst_4", 1},
	ICONST_5:        {"iconst_5", 1},
	LCONST_0:        {"lconst_0", 1},
	LCONST_1:        {"lconst_1", 1},
	FCONST_0:        {"fconst_0", 1},
	FCONST_1:        {"fconst_1", 1},
	FCONST_2:        {"fconst_2", 1},
	DCONST_0:        {"dconst_0", 1},
	DCONST_1:        {"dconst_1", 1},
	BIPUSH:          {"bipush", 2},
	SIPUSH:          {"sipush", 3},
	LDC:             {"ldc", 2},
	LDC_W:           {"ldc_w", 3},
	LDC2_W:          {"ldc2_w", 3},
	ILOAD:           {"iload", 2},
	LLOAD:           {"lload", 2},
	FLOAD:           {"fload", 2},
	DLOAD:           {"dload", 2},
	ALOAD:           {"aload", 2},
	ILOAD_0:         {"iload_0", 1},
	ILOAD_1:         {"iload_1", 1},
	ILOAD_2:         {"iload_2", 1},
	ILOAD_3:         {"iload_3", 1},
	LLOAD_0:         {"lload_0", 1},
	LLOAD_1:         {"lload_1", 1},
	LLOAD_2:         {"lload_2", 1},
	LLOAD_3:         {"lload_3", 1},
	FLOAD_0:         {"fload_0", 1},
	FLOAD_1:         {"fload_1", 1},
	FLOAD_2:         {"fload_2", 1},
	FLOAD_3:         {"fload_3", 1},
	DLOAD_0:         {"dload_0", 1},
	DLOAD_1:         {"dload_1", 1},
	DLOAD_2:         {"dload_2", 1},
	DLOAD_3:         {"dload_3", 1},
	ALOAD_0:         {"aload_0", 1},
	ALOAD_1:         {"aload_1", 1},
	ALOAD_2:         {"aload_2", 1},
	ALOAD_3:         {"aload_3", 1},
	IALOAD:          {"iaload", 1},
	LALOAD:          {"laload", 1},
	FALOAD:          {"faload", 1},
	DALOAD:          {"daload", 1},
	AALOAD:          {"aaload", 1},
	BALOAD:          {"baload", 1},
	CALOAD:          {"caload", 1},
	SALOAD:          {"saload", 1},
	ISTORE:          {"istore", 2},
	LSTORE:          {"lstore", 2},
	FSTORE:          {"fstore", 2},
	DSTORE:          {"dstore", 2},
	ASTORE:          {"astore", 2},
	ISTORE_0:        {"istore_0", 1},
	ISTORE_1:        {"istore_1", 1},
	ISTORE_2:        {"istore_2", 1},
	ISTORE_3:        {"istore_3", 1},
	LSTORE_0:        {"lstore_0", 1},
	LSTORE_1:        {"lstore_1", 1},
	LSTORE_2:        {"lstore_2", 1},
	LSTORE_3:        {"lstore_3", 1},
	FSTORE_0:        {"fstore_0", 1},
	FSTORE_1:        {"fstore_1", 1},
	FSTORE_2:        {"fstore_2", 1},
	FSTORE_3:        {"fstore_3", 1},
	DSTORE_0:        {"dstore_0", 1},
	DSTORE_1:        {"dstore_1", 1},
	DSTORE_2:        {"dstore_2", 1},
	DSTORE_3:        {"dstore_3", 1},
	ASTORE_0:        {"astore_0", 1},
	ASTORE_1:        {"astore_1", 1},
	ASTORE_2:        {"astore_2", 1},
	ASTORE_3:        {"astore_3", 1},
	IASTORE:         {"iastore", 1},
	LASTORE:         {"lastore", 1},
	FASTORE:         {"fastore", 1},
	DASTORE:         {"dastore", 1},
	AASTORE:         {"aastore", 1},
	BASTORE:         {"bastore", 1},
	CASTORE:         {"castore", 1},
	SASTORE:         {"sastore", 1},
	POP:             {"pop", 1},
	POP2:            {"pop2", 1},
	DUP:             {"dup", 1},
	DUP_X1:          {"dup_x1", 1},
	DUP_X2:          {"dup_x2", 1},
	DUP2:            {"dup2", 1},
	DUP2_X1:         {"dup2_x1", 1},
	DUP2_X2:         {"dup2_x2", 1},
	SWAP:            {"swap", 1},
	IADD:            {"iadd", 1},
	LADD:            {"ladd", 1},
	FADD:            {"fadd", 1},
	DADD:            {"dadd", 1},
	ISUB:            {"isub", 1},
	LSUB:            {"lsub", 1},
	FSUB:            {"fsub", 1},
	DSUB:            {"dsub", 1},
	IMUL:            {"imul", 1},
	LMUL:            {"lmul", 1},
	FMUL:            {"fmul", 1},
	DMUL:            {"dmul", 1},
	IDIV:            {"idiv", 1},
	LDIV:            {"ldiv", 1},
	FDIV:            {"fdiv", 1},
	DDIV:            {"ddiv", 1},
	IREM:            {"irem", 1},
	LREM:            {"lrem", 1},
	FREM:            {"frem", 1},
	DREM:            {"drem", 1},
	INEG:            {"ineg", 1},
	LNEG:            {"lneg", 1},
	FNEG:            {"fneg", 1},
	DNEG:            {"dneg", 1},
	ISHL:            {"ishl", 1},
	LSHL:            {"lshl", 1},
	ISHR:            {"ishr", 1},
	LSHR:            {"lshr", 1},
	IUSHR:           {"iushr", 1},
	LUSHR:           {"lushr", 1},
	IAND:            {"iand", 1},
	LAND:            {"land", 1},
	IOR:             {"ior", 1},
	LOR:             {"lor", 1},
	IXOR:            {"ixor", 1},
	LXOR:            {"lxor", 1},
	IINC:            {"iinc", 3},
	I2L:             {"i2l", 1},
	I2F:             {"i2f", 1},
	I2D:             {"i2d", 1},
	L2I:             {"l2i", 1},
	L2F:             {"l2f", 1},
	L2D:             {"l2d", 1},
	F2I:             {"f2i", 1},
	F2L:             {"f2l", 1},
	F2D:             {"f2d", 1},
	D2I:             {"d2i", 1},
	D2L:             {"d2l", 1},
	D2F:             {"d2f", 1},
	I2B:             {"i2b", 1},
	I2C:             {"i2c", 1},
	I2S:             {"i2s", 1},
	LCMP:            {"lcmp", 1},
	FCMPL:           {"fcmpl", 1},
	FCMPG:           {"fcmpg", 1},
	DCMPL:           {"dcmpl", 1},
	DCMPG:           {"dcmpg", 1},
	IFEQ:            {"ifeq", 3},
	IFNE:            {"ifne", 3},
	IFLT:            {"iflt", 3},
	IFGE:            {"ifge", 3},
	IFGT:            {"ifgt", 3},
	IFLE:            {"ifle", 3},
	IF_ICMPEQ:       {"if_icmpeq", 3},
	IF_ICMPNE:       {"if_icmpne", 3},
	IF_ICMPLT:       {"if_icmplt", 3},
	IF_ICMPGE:       {"if_icmpge", 3},
	IF_ICMPGT:       {"if_icmpgt", 3},
	IF_ICMPLE:       {"if_icmple", 3},
	IF_ACMPEQ:       {"if_acmpeq", 3},
	IF_ACMPNE:       {"if_acmpne", 3},
	GOTO:            {"goto", 3},
	JSR:             {"jsr", 3},
	RET:             {"ret", 2},
	TABLESWITCH:     {"tableswitch", 0},
	LOOKUPSWITCH:    {"lookupswitch", 0},
	IRETURN:         {"ireturn", 1},
	LRETURN:         {"lreturn", 1},
	FRETURN:         {"freturn", 1},
	DRETURN:         {"dreturn", 1},
	ARETURN:         {"areturn", 1},
	RETURN:          {"return", 1},
	GETSTATIC:       {"getstatic", 3},
	PUTSTATIC:       {"putstatic", 3},
	GETFIELD:        {"getfield", 3},
	PUTFIELD:        {"putfield", 3},
	INVOKEVIRTUAL:   {"invokevirtual", 3},
	INVOKESPECIAL:   {"invokespecial", 3},
	INVOKESTATIC:    {"invokestatic", 3},
	INVOKEINTERFACE: {"invokeinterface", 5},
	INVOKEDYNAMIC:   {"invokedynamic", 5},
	NEW:             {"new", 3},
	NEWARRAY:        {"newarray", 2},
	ANEWARRAY:       {"anewarray", 3},
	ARRAYLENGTH:     {"arraylength", 1},
	ATHROW:          {"athrow", 1},
	CHECKCAST:       {"checkcast", 3},
	INSTANCEOF:      {"instanceof", 3},
	MONITORENTER:    {"monitorenter", 1},
	MONITOREXIT:     {"monitorexit", 1},
	WIDE:            {"wide", 0},
	MULTIANEWARRAY:  {"multianewarray", 4},
	IFNULL:          {"ifnull", 3},
	IFNONNULL:       {"ifnonnull", 3},
	GOTO_W:          {"goto_w", 5},
	JSR_W:           {"jsr_w", 5},
}
