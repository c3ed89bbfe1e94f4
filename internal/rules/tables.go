package rules

import (
	"regexp"

	"github.com/xab-mack/smartaudit/internal/model"
)

var re = regexp.MustCompile

var securityRules = []Rule{
	{
		Kind:           "tx.origin usage",
		Pattern:        re(`\btx\.origin\b`),
		Severity:       model.SeverityCritical,
		Scope:          ScopeUnit,
		Description:    "tx.origin is used in the contract; it identifies the transaction originator, not the immediate caller",
		Recommendation: "Replace tx.origin with msg.sender and implement proper access control.",
		Impact:         "A malicious intermediate contract can phish the owner and pass tx.origin-based authorization.",
		References:     []string{"SWC-115"},
	},
	{
		Kind:           "Unprotected selfdestruct",
		Pattern:        re(`\b(selfdestruct|suicide)\s*\(`),
		Severity:       model.SeverityHigh,
		Description:    "selfdestruct can permanently disable the contract and forward its ether",
		Recommendation: "Avoid selfdestruct; if needed, restrict via onlyOwner/timelock and use fixed, vetted payout addresses.",
		Impact:         "Contract code and state can be destroyed and funds sent to an attacker-controlled address.",
		References:     []string{"SWC-106"},
	},
	{
		Kind:           "Delegatecall to untrusted target",
		Pattern:        re(`\.delegatecall\s*[({]`),
		Severity:       model.SeverityHigh,
		Description:    "delegatecall executes foreign code in the context of this contract's storage",
		Recommendation: "Restrict and validate delegatecall targets. Use UUPS/transparent proxy patterns with access control.",
		Impact:         "An untrusted target can overwrite storage, change ownership or drain funds.",
		References:     []string{"SWC-112"},
	},
	{
		Kind:           "Weak randomness",
		Pattern:        re(`\bblockhash\s*\(|\bblock\.(difficulty|prevrandao)\b|keccak256\s*\(.*\bblock\.(timestamp|number)\b`),
		Severity:       model.SeverityHigh,
		Description:    "Randomness is derived from block attributes that validators can influence",
		Recommendation: "Use Chainlink VRF or commit-reveal schemes instead of chain attributes.",
		Impact:         "Outcomes relying on this value can be predicted or manipulated.",
		References:     []string{"SWC-120"},
	},
	{
		Kind:           "Low-level call",
		Pattern:        re(`\.call\s*[({]|\.call\.value\s*\(`),
		Severity:       model.SeverityMedium,
		Description:    "Low-level call forwards all remaining gas and hands control to external code",
		Recommendation: "Check the returned success flag, follow checks-effects-interactions and consider a ReentrancyGuard.",
		Impact:         "Failed calls can go unnoticed and the callee can re-enter the contract.",
		References:     []string{"SWC-104", "SWC-107"},
	},
	{
		Kind:           "Unchecked send",
		Pattern:        re(`\.send\s*\(`),
		Unless:         re(`\b(require|assert|if)\s*\(`),
		Severity:       model.SeverityMedium,
		Description:    "The boolean returned by send is not checked",
		Recommendation: "Wrap send in require() or use call{value: amount}(\"\") and handle the success boolean.",
		Impact:         "Ether transfers can fail silently and leave accounting inconsistent.",
		References:     []string{"SWC-104"},
	},
	{
		Kind:           "Inline assembly",
		Pattern:        re(`\bassembly\s*(\(.*\)\s*)?\{`),
		Severity:       model.SeverityMedium,
		Description:    "Inline assembly bypasses Solidity's type and memory safety checks",
		Recommendation: "Limit assembly to audited, well-documented helpers and prefer high-level Solidity.",
		Impact:         "Memory or storage corruption bugs are easy to introduce and hard to review.",
	},
	{
		Kind:           "Unbounded loop",
		Pattern:        re(`\b(for|while)\s*\(.*\.length\b`),
		Severity:       model.SeverityMedium,
		Description:    "Loop bound depends on a dynamic array length",
		Recommendation: "Bound array length or split work across transactions.",
		Impact:         "Gas usage grows with the array and the function can become permanently uncallable.",
		References:     []string{"SWC-128"},
	},
	{
		Kind:           "Signature malleability",
		Pattern:        re(`\becrecover\s*\(`),
		Severity:       model.SeverityMedium,
		Description:    "ecrecover accepts malleable signatures and returns address(0) on failure",
		Recommendation: "Use OpenZeppelin ECDSA.recover, check for address(0) and track nonces.",
		Impact:         "Signatures can be replayed or forged into a different valid form.",
		References:     []string{"SWC-117", "SWC-121"},
	},
	{
		Kind:           "Uninitialized storage pointer",
		Pattern:        re(`\bstorage\s+[A-Za-z_]\w*\s*;`),
		Severity:       model.SeverityMedium,
		Description:    "Local storage pointer declared without initialization",
		Recommendation: "Initialize storage pointers explicitly or use memory for temporary values.",
		Impact:         "The pointer aliases slot 0 and writes can overwrite unrelated state.",
		References:     []string{"SWC-109"},
	},
	{
		Kind:           "Default function visibility",
		Pattern:        re(`\bfunction\s+\w+\s*\([^)]*\)\s*(returns\s*\(.*\)\s*)?\{`),
		Severity:       model.SeverityMedium,
		Description:    "Function declared without an explicit visibility specifier",
		Recommendation: "Declare visibility explicitly (external, public, internal or private).",
		Impact:         "Functions may be callable by anyone when they were meant to be internal.",
		References:     []string{"SWC-100"},
	},
	{
		Kind:           "Use of transfer",
		Pattern:        re(`\.transfer\s*\(`),
		Unless:         re(`\b(IERC20|token|safeTransfer)\b`),
		Severity:       model.SeverityLow,
		Description:    "transfer forwards a fixed 2300 gas stipend",
		Recommendation: "Use call{value: amount}(\"\") and handle the success boolean, or implement pull payment pattern.",
		Impact:         "Transfers can start reverting after gas repricing or when the receiver is a contract.",
		References:     []string{"EIP-1884"},
	},
	{
		Kind:           "Timestamp dependence",
		Pattern:        re(`\bblock\.timestamp\b|\bnow\b`),
		Severity:       model.SeverityLow,
		Description:    "Logic depends on block.timestamp",
		Recommendation: "Tolerate validator drift of a few seconds; do not use timestamps for randomness.",
		Impact:         "Validators can shift timestamps slightly to influence time-dependent outcomes.",
		References:     []string{"SWC-116"},
	},
	{
		Kind:           "Floating pragma",
		Pattern:        re(`pragma\s+solidity\s*(\^|>=|>|~)`),
		Severity:       model.SeverityLow,
		Description:    "Floating pragma solidity version",
		Recommendation: "Pin to an exact compiler version, e.g., pragma solidity 0.8.20; and enforce in CI.",
		Impact:         "Different builds can use compilers with different behavior or known bugs.",
		References:     []string{"SWC-103"},
	},
	{
		Kind:           "Hash collision with encodePacked",
		Pattern:        re(`abi\.encodePacked\s*\([^)]*,`),
		Severity:       model.SeverityLow,
		Description:    "abi.encodePacked with multiple arguments can produce colliding encodings",
		Recommendation: "Use abi.encode for hashing multiple dynamic values.",
		Impact:         "Different inputs can hash to the same value and bypass signature or uniqueness checks.",
		References:     []string{"SWC-133"},
	},
	{
		Kind:           "Approve front-running",
		Pattern:        re(`\bapprove\s*\(`),
		Severity:       model.SeverityLow,
		Description:    "Token approve pattern may be front-runnable (race to spend)",
		Recommendation: "Use decreaseAllowance to zero first or EIP-2612 permit pattern.",
		Impact:         "A spender can use both the old and the new allowance.",
	},
}

var vulnerabilityRules = []Rule{
	{
		Kind:           "tx.origin usage",
		Pattern:        re(`\btx\.origin\b`),
		Severity:       model.SeverityCritical,
		Description:    "tx.origin used in authorization logic",
		Recommendation: "Replace tx.origin with msg.sender and implement proper access control.",
		Impact:         "tx.origin is susceptible to phishing through smart contract calls.",
		References:     []string{"SWC-115"},
	},
	{
		Kind:           "Reentrancy-prone value transfer",
		Pattern:        re(`\.call\s*\{\s*value\s*:|\.call\.value\s*\(`),
		Unless:         re(`\bnonReentrant\b`),
		Severity:       model.SeverityHigh,
		Description:    "Ether sent with a low-level call that forwards all gas",
		Recommendation: "Move state updates before external calls or add ReentrancyGuard; prefer pull over push.",
		Impact:         "The receiver can re-enter before balances are updated and drain funds.",
		References:     []string{"SWC-107"},
	},
	{
		Kind:           "Unchecked call return value",
		Pattern:        re(`^\s*[\w.\[\]()]+\.(call|send|delegatecall|staticcall)\s*[({]`),
		Severity:       model.SeverityHigh,
		Description:    "Return value of a low-level call is discarded",
		Recommendation: "Capture and check the success flag, e.g. (bool ok, ) = to.call(...); require(ok);",
		Impact:         "Failures are silently ignored and the contract continues with wrong assumptions.",
		References:     []string{"SWC-104"},
	},
	{
		Kind:           "Delegatecall to untrusted target",
		Pattern:        re(`\.delegatecall\s*[({]`),
		Severity:       model.SeverityCritical,
		Description:    "delegatecall target may be derived from user-controlled input",
		Recommendation: "Restrict and validate delegatecall targets. Use UUPS/transparent proxy patterns with access control.",
		Impact:         "delegatecall executes in caller context; untrusted targets can corrupt storage and take over.",
		References:     []string{"SWC-112"},
	},
	{
		Kind:           "Unprotected selfdestruct",
		Pattern:        re(`\b(selfdestruct|suicide)\s*\(`),
		Severity:       model.SeverityCritical,
		Description:    "selfdestruct reachable without visible restriction",
		Recommendation: "Avoid selfdestruct; if needed, restrict via onlyOwner/timelock and use fixed, vetted payout addresses.",
		Impact:         "Contracts using selfdestruct can be permanently disabled or leak funds to attacker-controlled addresses.",
		References:     []string{"SWC-106"},
	},
	{
		Kind:           "Missing access control",
		Pattern:        re(`\bfunction\s+(mint|burn|set\w*|transferOwnership|withdraw\w*|pause|unpause|upgradeTo\w*|kill|destroy)\s*\([^)]*\)\s*[^{;]*\b(public|external)\b`),
		Unless:         re(`\bonly\w*|\bwhenNotPaused\b|\binitializer\b|\bview\b|\bpure\b`),
		Severity:       model.SeverityHigh,
		Description:    "Public/external privileged function without an access-control modifier",
		Recommendation: "Add appropriate access control (e.g., onlyOwner/onlyRole) or explicit require() checks.",
		Impact:         "Anyone can invoke privileged operations such as minting, withdrawing or upgrading.",
		References:     []string{"SWC-105", "SWC-106"},
	},
	{
		Kind:           "Unprotected initializer",
		Pattern:        re(`\bfunction\s+initiali[sz]e\w*\s*\(`),
		Unless:         re(`\binitializer\b|\bonlyOwner\b|\bonlyInitializing\b`),
		Severity:       model.SeverityHigh,
		Description:    "Initializer function without an initializer guard",
		Recommendation: "Protect initializers with OpenZeppelin's initializer modifier and call them atomically on deploy.",
		Impact:         "An attacker can initialize the contract first and take ownership.",
	},
	{
		Kind:           "Weak randomness",
		Pattern:        re(`\bblockhash\s*\(|\bblock\.(difficulty|prevrandao)\b|keccak256\s*\(.*\bblock\.(timestamp|number)\b`),
		Severity:       model.SeverityHigh,
		Description:    "Use of miner-influenced randomness source",
		Recommendation: "Use Chainlink VRF or commit-reveal schemes instead of chain attributes.",
		Impact:         "Miners can influence timestamps/blockhash; outcomes may be manipulated.",
		References:     []string{"SWC-120"},
	},
	{
		Kind:           "Arbitrary array length manipulation",
		Pattern:        re(`\.length\s*(--|-=|=[^=])`),
		Severity:       model.SeverityHigh,
		Description:    "Dynamic array length is written directly",
		Recommendation: "Use push/pop instead of writing .length.",
		Impact:         "Underflowing the length exposes arbitrary storage slots to writes.",
		References:     []string{"SWC-124"},
	},
	{
		Kind:           "Unchecked arithmetic block",
		Pattern:        re(`\bunchecked\s*\{`),
		Severity:       model.SeverityMedium,
		Description:    "Arithmetic inside unchecked blocks can wrap silently",
		Recommendation: "Keep unchecked blocks minimal and document why overflow is impossible.",
		Impact:         "Overflows or underflows corrupt balances and counters.",
		References:     []string{"SWC-101"},
	},
	{
		Kind:           "Swap without slippage protection",
		Pattern:        re(`\bswapExact\w*\s*\(`),
		Unless:         re(`(?i)amountOutMin|minAmountOut|minimumAmountOut`),
		Severity:       model.SeverityMedium,
		Description:    "Swap without explicit slippage protection (amountOutMin)",
		Recommendation: "Pass reasonable amountOutMin based on user tolerance and on-chain TWAP.",
		Impact:         "Transactions without slippage bounds are vulnerable to sandwich attacks.",
	},
	{
		Kind:           "Swap deadline set to block.timestamp",
		Pattern:        re(`\bswap\w*\s*\(.*\bblock\.timestamp\b`),
		Severity:       model.SeverityMedium,
		Description:    "Swap deadline derived from block.timestamp never expires",
		Recommendation: "Accept a caller-supplied deadline and forward it to the router.",
		Impact:         "Validators can hold the transaction and execute it at a worse price.",
	},
	{
		Kind:           "Unchecked ERC20 return value",
		Pattern:        re(`^\s*(I?ERC20\s*\([^)]*\)|\w*[Tt]oken\w*)\s*\.\s*(transfer|transferFrom|approve)\s*\(`),
		Severity:       model.SeverityMedium,
		Description:    "ERC20 call whose boolean result is discarded",
		Recommendation: "Require the returned boolean or use SafeERC20 wrappers.",
		Impact:         "Tokens that return false on failure leave accounting out of sync with balances.",
		References:     []string{"SWC-104"},
	},
	{
		Kind:           "Block number dependence",
		Pattern:        re(`\bblock\.number\b`),
		Severity:       model.SeverityLow,
		Description:    "Logic depends on block.number",
		Recommendation: "Avoid using block numbers as a clock; block times vary across chains.",
		Impact:         "Time-based assumptions break when block production rates change.",
		References:     []string{"SWC-116"},
	},
	{
		Kind:           "Hardcoded gas amount",
		Pattern:        re(`\.gas\s*\(|\bgas\s*:\s*\d`),
		Severity:       model.SeverityLow,
		Description:    "Call forwards a hardcoded amount of gas",
		Recommendation: "Avoid fixed gas amounts; opcode costs change between forks.",
		Impact:         "Calls can start failing after gas repricing.",
		References:     []string{"SWC-134"},
	},
	{
		Kind:           "Deprecated construct",
		Pattern:        re(`\b(suicide|sha3|callcode)\s*\(|\bthrow\s*;|\bvar\s+\w+\s*=`),
		Severity:       model.SeverityLow,
		Description:    "Deprecated Solidity construct in use",
		Recommendation: "Replace with selfdestruct, keccak256, delegatecall, revert() or explicit types.",
		Impact:         "Deprecated constructs do not compile on recent compilers and hide intent.",
		References:     []string{"SWC-111"},
	},
}

var gasRules = []Rule{
	{
		Kind:           "Array length read in loop condition",
		Pattern:        re(`\bfor\s*\([^;]*;[^;]*\.length\b`),
		Severity:       model.SeverityLow,
		Description:    "Array length is re-read on every loop iteration",
		Recommendation: "Cache the length in a local variable before the loop.",
		Impact:         "Saves an SLOAD (about 100 gas) per iteration for storage arrays.",
	},
	{
		Kind:           "Postfix increment in loop",
		Pattern:        re(`\bfor\s*\(.*;\s*\w+\s*(\+\+|--)\s*\)`),
		Severity:       model.SeverityLow,
		Description:    "Loop counter uses postfix increment",
		Recommendation: "Use ++i (and an unchecked block on 0.8+) for loop counters.",
		Impact:         "Saves roughly 5 gas per iteration, more with unchecked.",
	},
	{
		Kind:           "Increment by compound assignment",
		Pattern:        re(`\+=\s*1\s*;`),
		Severity:       model.SeverityLow,
		Description:    "x += 1 is used where ++x suffices",
		Recommendation: "Use ++x.",
		Impact:         "Saves a few gas per execution.",
	},
	{
		Kind:           "Long revert string",
		Pattern:        re(`\b(require|revert)\s*\(.*"[^"]{33,}"`),
		Raw:            true,
		Severity:       model.SeverityLow,
		Description:    "Revert string longer than 32 bytes",
		Recommendation: "Shorten the message or use custom errors.",
		Impact:         "Each extra 32-byte word increases deployment and revert cost.",
	},
	{
		Kind:           "Greater-than-zero comparison",
		Pattern:        re(`\brequire\s*\(\s*\w+(\.\w+|\[[^\]]*\])*\s*>\s*0\b`),
		Severity:       model.SeverityLow,
		Description:    "Unsigned value compared with > 0",
		Recommendation: "Use != 0 for unsigned integers.",
		Impact:         "Saves a few gas per comparison.",
	},
	{
		Kind:           "Sub-256-bit integer variable",
		Pattern:        re(`^\s*u?int(8|16|32|64|128)\s+(public\s+|private\s+|internal\s+)?\w+\s*[;=]`),
		Severity:       model.SeverityLow,
		Description:    "Small integer types cost extra masking operations outside packed structs",
		Recommendation: "Use uint256 unless the variable is packed with neighbours.",
		Impact:         "Saves masking gas on every read and write.",
	},
	{
		Kind:           "Memory parameter in public function",
		Pattern:        re(`\bfunction\s+\w+\s*\([^)]*\b(string|bytes|\w+\[\])\s+memory\b[^)]*\)\s*[^{]*\bpublic\b`),
		Severity:       model.SeverityLow,
		Description:    "Public function copies array/string arguments into memory",
		Recommendation: "Make the function external and take calldata parameters.",
		Impact:         "Avoids copying arguments from calldata to memory.",
	},
	{
		Kind:           "State variable could be constant",
		Pattern:        re(`^\s*(uint\d*|int\d*|address|bytes32|bool)\s+(public\s+|private\s+|internal\s+)?\w+\s*=\s*(\d|0x|true|false)`),
		Unless:         re(`\b(constant|immutable)\b`),
		Severity:       model.SeverityLow,
		Description:    "Variable initialized with a literal is not constant",
		Recommendation: "Declare literal-initialized state variables constant or immutable.",
		Impact:         "Replaces an SLOAD (2100 gas cold) with an inlined value.",
	},
}

// heuristicRules back the relational detectors; their Pattern is the trigger
// a detector looks for before reasoning across lines.
var heuristicRules = []Rule{
	{
		Kind:           "Reentrancy",
		Pattern:        re(`\.(call|send|transfer)\s*[({]|\.call\.value\s*\(`),
		Severity:       model.SeverityCritical,
		Scope:          ScopeRelational,
		Description:    "State is modified after an external call",
		Recommendation: "Move state updates before external calls or add ReentrancyGuard; prefer pull over push.",
		Impact:         "The callee can re-enter before state is updated and repeat withdrawals.",
		References:     []string{"SWC-107"},
	},
	{
		Kind:           "Integer Overflow/Underflow",
		Pattern:        re(`pragma\s+solidity`),
		Severity:       model.SeverityHigh,
		Scope:          ScopeRelational,
		Description:    "Arithmetic on a compiler below 0.8 without SafeMath",
		Recommendation: "Upgrade to Solidity 0.8+ or use SafeMath for every arithmetic operation.",
		Impact:         "Values wrap around silently, corrupting balances and supply.",
		References:     []string{"SWC-101"},
	},
}

// structuralRules back the structural detector, which reasons over function
// bodies and contract-level declarations. Pattern selects a candidate and
// Unless clears it; what each is tested against depends on the kind.
var structuralRules = []Rule{
	{
		Kind:           "Unprotected upgrade function",
		Pattern:        re(`(?i)\bfunction\s+upgradeTo(?:AndCall)?\b`),
		Unless:         re(`\b(onlyOwner|onlyProxy|onlyAdmin|onlyRole)\b|\brequire\s*\(\s*msg\.sender\s*==`),
		Severity:       model.SeverityHigh,
		Scope:          ScopeRelational,
		Description:    "Upgrade function without access control",
		Recommendation: "Restrict upgradeTo/upgradeToAndCall with onlyOwner, onlyProxy or a role check.",
		Impact:         "Anyone can swap in a hostile implementation and take over the proxy's storage.",
		References:     []string{"EIP-1822", "EIP-1967"},
	},
	{
		Kind:           "Missing storage gap",
		Pattern:        re(`(?i)\bis\s+[^{]*Upgradeable\b|\bupgradeTo(?:AndCall)?\s*\(`),
		Unless:         re(`\b__gap\b`),
		Severity:       model.SeverityMedium,
		Scope:          ScopeRelational,
		Description:    "Upgradeable contract without a reserved storage gap",
		Recommendation: "Reserve slots in upgradeable bases, e.g. uint256[50] private __gap;",
		Impact:         "Variables added in a later version can collide with storage of derived contracts.",
		References:     []string{"OZ Upgradeable"},
	},
	{
		Kind:           "Unguarded payable fallback",
		Pattern:        re(`^\s*(fallback|receive)\s*\(`),
		Unless:         re(`\brevert\b`),
		Severity:       model.SeverityMedium,
		Scope:          ScopeRelational,
		Description:    "Payable fallback or receive accepts ether without safeguards",
		Recommendation: "Revert in fallback/receive or add explicit accounting and limits.",
		Impact:         "Ether can be sent by mistake and becomes stuck or unaccounted.",
	},
	{
		Kind:           "Payable function ignores msg.value",
		Pattern:        re(`^\s*function\b`),
		Unless:         re(`\bmsg\.value\b|\bemit\s+\w+`),
		Severity:       model.SeverityMedium,
		Scope:          ScopeRelational,
		Description:    "Payable function does not account for msg.value",
		Recommendation: "Validate msg.value, record it in state, emit an event, or drop payable.",
		Impact:         "Ether sent to the function is accepted silently with no accounting or refund.",
	},
	{
		Kind:           "State change without event",
		Pattern:        re(`^\s*function\b`),
		Unless:         re(`\bemit\s+\w+`),
		Severity:       model.SeverityLow,
		Scope:          ScopeRelational,
		Description:    "State variable updated without emitting an event",
		Recommendation: "Emit an event carrying the new value whenever critical state changes.",
		Impact:         "Off-chain monitors and indexers cannot observe the change.",
		References:     []string{"SWC-1010"},
	},
	{
		Kind:           "Mutable critical address",
		Pattern:        re(`(?i)owner|admin|oracle|token|router|treasury`),
		Severity:       model.SeverityLow,
		Scope:          ScopeRelational,
		Description:    "Critical address set once in the constructor but not immutable",
		Recommendation: "Declare addresses that never change after deployment immutable.",
		Impact:         "The address stays writable by future code paths and costs an SLOAD per read.",
	},
}
