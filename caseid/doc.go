// Package caseid implements structured identifiers for cases and subcases
// of a design space.
//
// What:
//
//   - ID: a root case number plus an ordered path of 1-based subcase indices.
//   - Parse / String: round-trip with the dotted text form used externally,
//     e.g. "12", "12_3", "12_3_1" (the parser also accepts '.' separators).
//   - Compare / Sort: the dotted-decimal order, which splits identifiers into
//     integer components and compares them left to right; a shorter prefix
//     sorts first ("7" < "7_1" < "7_2" < "8").
//
// Why:
//
//   - Cyclical cases are resolved into nested subcases. Keeping the nesting
//     structured avoids string surgery when walking down a subcase path.
//
// Complexity:
//
//   - Parse, String: O(L) in the text length.
//   - Compare:       O(min(depth)).
//   - Sort:          O(n log n · depth).
package caseid
