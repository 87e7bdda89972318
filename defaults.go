package typegrid

// DefaultRootSheet is the root grid of an OPC configuration model workbook.
const DefaultRootSheet = "OPC Config Model"

// DefaultBasicTypes returns the OPC UA built-in scalar type names.
func DefaultBasicTypes() []string {
	return []string{
		"Boolean", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32",
		"Int64", "UInt64", "Float", "Double", "String", "DateTime", "Guid",
		"ByteString", "XmlElement", "NodeId", "ExpandedNodeId", "StatusCode",
		"QualifiedName", "LocalizedText",
	}
}
