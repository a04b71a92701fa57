package quant8

// Version is major*10000 + minor*100 + patch, matching the stable numeric
// versioning scheme a C ABI façade would export.
const Version = 40000
